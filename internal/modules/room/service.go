package room

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pagemind/core/internal/models"
	redisc "github.com/pagemind/core/internal/pkg/redis"
)

var (
	// ErrRoomExists is returned when a room id collides on create. Callers
	// pick random 6-character codes and retry; the registry never retries
	// internally.
	ErrRoomExists = errors.New("room already exists")
	// ErrRoomNotFound is returned when a join or listing targets an
	// unregistered room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrNoCredential is returned when a room has no generation API key
	// configured.
	ErrNoCredential = errors.New("room does not have an API key configured")
)

func roomKey(roomID string) string      { return "room:" + roomID }
func membersKey(roomID string) string   { return roomKey(roomID) + ":members" }
func summariesKey(roomID string) string { return roomKey(roomID) + ":summaries" }
func userRoomsKey(userID string) string { return "user:" + userID + ":rooms" }

// RecordReader resolves fingerprints from the room index into full records.
// Listing skips hit/miss accounting, hence the separate read path from the
// cache-aside Get.
type RecordReader interface {
	Peek(ctx context.Context, fingerprint string) (*models.SummaryRecord, bool, error)
}

// Service is the room registry: creation, membership, per-room credentials,
// and the time-ordered index of summaries contributed to each room.
type Service struct {
	rc      *redisc.Client
	records RecordReader
}

func NewService(rc *redisc.Client, records RecordReader) *Service {
	return &Service{rc: rc, records: records}
}

// Create registers a new room with the creator as first member. The optional
// credential is stored server-side and only ever exposed as a presence flag.
func (s *Service) Create(ctx context.Context, roomID, userID, credential string) (*models.Room, error) {
	exists, err := s.rc.Exists(ctx, roomKey(roomID))
	if err != nil {
		return nil, fmt.Errorf("check room: %w", err)
	}
	if exists {
		return nil, ErrRoomExists
	}

	created := time.Now().UTC().Truncate(time.Millisecond)
	fields := map[string]string{
		"created": created.Format(models.TimestampLayout),
		"creator": userID,
	}
	if credential != "" {
		fields["apiKey"] = credential
	}

	if err := s.rc.HSet(ctx, roomKey(roomID), fields); err != nil {
		return nil, fmt.Errorf("store room: %w", err)
	}
	if err := s.rc.SAdd(ctx, membersKey(roomID), userID); err != nil {
		return nil, fmt.Errorf("add creator: %w", err)
	}
	if err := s.rc.SAdd(ctx, userRoomsKey(userID), roomID); err != nil {
		return nil, fmt.Errorf("track user room: %w", err)
	}

	return &models.Room{
		RoomID:    roomID,
		Created:   created,
		Creator:   userID,
		HasAPIKey: credential != "",
		Members:   []string{userID},
	}, nil
}

// Join adds the user to the room's membership set. Joining twice is a no-op.
func (s *Service) Join(ctx context.Context, roomID, userID string) (*models.Room, error) {
	fields, err := s.rc.HGetAll(ctx, roomKey(roomID))
	if err != nil {
		return nil, fmt.Errorf("read room: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrRoomNotFound
	}

	if err := s.rc.SAdd(ctx, membersKey(roomID), userID); err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	if err := s.rc.SAdd(ctx, userRoomsKey(userID), roomID); err != nil {
		return nil, fmt.Errorf("track user room: %w", err)
	}

	room, err := models.ParseRoomFields(roomID, fields)
	if err != nil {
		return nil, err
	}

	members, err := s.rc.SMembers(ctx, membersKey(roomID))
	if err != nil {
		return nil, fmt.Errorf("read members: %w", err)
	}
	sort.Strings(members)
	room.Members = members

	return room, nil
}

// Exists reports whether the room is registered.
func (s *Service) Exists(ctx context.Context, roomID string) (bool, error) {
	return s.rc.Exists(ctx, roomKey(roomID))
}

// Credential returns the room's generation API key. A missing room or a room
// created without a key both come back as ErrNoCredential: either way there
// is nothing to generate with.
func (s *Service) Credential(ctx context.Context, roomID string) (string, error) {
	key, err := s.rc.HGet(ctx, roomKey(roomID), "apiKey")
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	if key == "" {
		return "", ErrNoCredential
	}
	return key, nil
}

// RecordSummary upserts a fingerprint into the room's ordered index with the
// record timestamp as score. Re-adding the same fingerprint refreshes the
// score but never duplicates the entry.
func (s *Service) RecordSummary(ctx context.Context, roomID, fingerprint string, ts time.Time) error {
	return s.rc.ZAdd(ctx, summariesKey(roomID), float64(ts.UnixMilli()), fingerprint)
}

// ListSummaries returns the room's summaries newest-first. Fingerprints whose
// record has expired from the cache are skipped silently; the index entry
// itself is never pruned, so a room's list can shrink over time.
func (s *Service) ListSummaries(ctx context.Context, roomID string) ([]*models.SummaryRecord, error) {
	exists, err := s.rc.Exists(ctx, roomKey(roomID))
	if err != nil {
		return nil, fmt.Errorf("check room: %w", err)
	}
	if !exists {
		return nil, ErrRoomNotFound
	}

	fingerprints, err := s.rc.ZRevRange(ctx, summariesKey(roomID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("read room index: %w", err)
	}

	records := make([]*models.SummaryRecord, 0, len(fingerprints))
	for _, fp := range fingerprints {
		rec, ok, err := s.records.Peek(ctx, fp)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}
