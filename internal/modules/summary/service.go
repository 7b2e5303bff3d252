package summary

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pagemind/core/internal/models"
	"github.com/pagemind/core/internal/modules/gemini"
	"github.com/pagemind/core/internal/modules/room"
	"github.com/pagemind/core/internal/pkg/fingerprint"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrEmptyURL      = errors.New("url is required")
	ErrInvalidRoomID = errors.New("roomId must be 6 alphanumeric characters")
)

// Generator is the text-generation capability the service consumes.
type Generator interface {
	Generate(ctx context.Context, content string, opts gemini.Options, apiKey string) (*gemini.Result, error)
}

// Request carries one summarization request. Content arrives pre-truncated by
// the caller; the service treats it as opaque text.
type Request struct {
	URL      string
	Title    string
	Content  string
	RoomID   string
	UserID   string
	Length   string
	Language string
}

// Service runs the cache-aside flow: fingerprint, cache lookup, credential
// resolution, generation, write-back, room index upsert.
type Service struct {
	cache      *Cache
	rooms      *room.Service
	gen        Generator
	defaultKey string
	log        *zap.Logger
	group      singleflight.Group
	ttl        time.Duration
	now        func() time.Time
}

func NewService(cache *Cache, rooms *room.Service, gen Generator, defaultAPIKey string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		cache:      cache,
		rooms:      rooms,
		gen:        gen,
		defaultKey: defaultAPIKey,
		log:        log,
		ttl:        DefaultTTL,
		now:        time.Now,
	}
}

// Summarize returns the cached record for the URL or generates a fresh one.
// Concurrent requests for the same uncached fingerprint are collapsed into a
// single generation within this process; followers share the leader's record.
func (s *Service) Summarize(ctx context.Context, req Request) (*models.SummaryRecord, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, ErrEmptyURL
	}
	if req.RoomID != "" && !room.ValidID(req.RoomID) {
		return nil, ErrInvalidRoomID
	}

	fp := fingerprint.Hash(req.URL)

	rec, ok, err := s.cache.Get(ctx, fp)
	if err != nil {
		return nil, err
	}
	if ok {
		s.log.Debug("cache hit", zap.String("url", req.URL), zap.String("fingerprint", fp))
		if err := s.recordInRoom(ctx, req.RoomID, fp, rec.Timestamp); err != nil {
			return nil, err
		}
		return rec, nil
	}

	// Credential resolution happens before any generation attempt so a
	// missing room key never counts as a generation call.
	apiKey, err := s.resolveCredential(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	s.log.Info("generating summary", zap.String("url", req.URL), zap.String("fingerprint", fp))
	v, err, _ := s.group.Do(fp, func() (interface{}, error) {
		return s.generate(ctx, req, fp, apiKey)
	})
	if err != nil {
		return nil, err
	}
	rec = v.(*models.SummaryRecord)

	if err := s.recordInRoom(ctx, req.RoomID, fp, rec.Timestamp); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) generate(ctx context.Context, req Request, fp, apiKey string) (*models.SummaryRecord, error) {
	length := normalizeLength(req.Length)

	result, err := s.gen.Generate(ctx, req.Content, gemini.Options{
		Length:   length,
		Language: req.Language,
	}, apiKey)
	if err != nil {
		return nil, err
	}

	rec := &models.SummaryRecord{
		URL:           req.URL,
		URLHash:       fp,
		Title:         req.Title,
		Summary:       result.Summary,
		KeyPoints:     result.KeyPoints,
		Timestamp:     s.now().UTC().Truncate(time.Millisecond),
		SummarizedBy:  req.UserID,
		SummaryLength: length,
		FromCache:     false,
	}

	if err := s.cache.Put(ctx, rec, s.ttl); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) recordInRoom(ctx context.Context, roomID, fp string, ts time.Time) error {
	if roomID == "" {
		return nil
	}
	return s.rooms.RecordSummary(ctx, roomID, fp, ts)
}

func (s *Service) resolveCredential(ctx context.Context, roomID string) (string, error) {
	if roomID != "" {
		return s.rooms.Credential(ctx, roomID)
	}
	if s.defaultKey == "" {
		return "", room.ErrNoCredential
	}
	return s.defaultKey, nil
}

func normalizeLength(length string) string {
	switch length {
	case gemini.LengthBrief, gemini.LengthDetailed:
		return length
	default:
		return gemini.LengthMedium
	}
}
