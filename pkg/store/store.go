// Package store implements the BD Store (C6): Redis-backed persistence for
// ConsolidatedBridgeDomain records and EditSessions, fronted by a
// read-through ttlcache layer, with per-(device, iface) uniqueness
// enforcement on insert.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jellydator/ttlcache/v3"

	"github.com/fabricbd/bdctl/pkg/ferrors"
	"github.com/fabricbd/bdctl/pkg/model"
)

const (
	tableBridgeDomains = "BRIDGE_DOMAINS"
	tableEditSessions  = "EDIT_SESSIONS"

	defaultCacheTTL = 30 * time.Second
)

// Filter selects ConsolidatedBridgeDomains for List (spec §4.C6: "by user,
// VLAN range, DNAAS type, availability/assignment state").
type Filter struct {
	User            string
	DNAASType       model.DNAASType
	VLANMin         int
	VLANMax         int
	HasVLANRange    bool
	AssignmentState string
}

func (f Filter) matches(bd *model.ConsolidatedBridgeDomain) bool {
	if f.User != "" && (bd.Username == nil || *bd.Username != f.User) {
		return false
	}
	if f.DNAASType != "" && bd.DNAASType != f.DNAASType {
		return false
	}
	if f.AssignmentState != "" && bd.AssignmentState != f.AssignmentState {
		return false
	}
	if f.HasVLANRange {
		if bd.GlobalIdentifier == nil {
			return false
		}
		id := *bd.GlobalIdentifier
		if id < f.VLANMin || id > f.VLANMax {
			return false
		}
	}
	return true
}

// Store is a Redis-backed persistence layer for bridge domains and edit
// sessions, grounded on the teacher's ConfigDBClient (`<table>|<key>` hash
// keying over `go-redis/redis/v8`), with a ttlcache.Cache read-through
// layer over Get; List always reads Redis.
type Store struct {
	client *redis.Client
	ctx    context.Context

	cache   *ttlcache.Cache[string, *model.ConsolidatedBridgeDomain]
	cacheMu sync.RWMutex

	// writeMu serializes inserts/updates so the uniqueness check-then-set
	// sequence is atomic from the store's perspective (spec §4.C6:
	// "writes are transactional; readers see either the pre- or
	// post-write state, never a partial one").
	writeMu sync.Mutex
}

// New builds a Store against the Redis instance at addr, using db for the
// BD/session tables (teacher convention: config_db lives at a fixed DB
// index; bdctl reserves its own).
func New(addr string, db int, cacheTTL time.Duration) *Store {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *model.ConsolidatedBridgeDomain](cacheTTL),
	)
	go cache.Start()

	return &Store{
		client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		ctx:    context.Background(),
		cache:  cache,
	}
}

// Close releases the underlying Redis connection and stops the cache's
// background eviction goroutine.
func (s *Store) Close() error {
	s.cache.Stop()
	return s.client.Close()
}

func redisKey(table, key string) string { return fmt.Sprintf("%s|%s", table, key) }

// UpsertConsolidated inserts or merge-updates a ConsolidatedBridgeDomain,
// identified by PrimaryName (spec §4.C6). Enforces per-(device, iface)
// uniqueness across all other stored records and replaces the cache
// entry for this name with bd.
func (s *Store) UpsertConsolidated(bd *model.ConsolidatedBridgeDomain) error {
	if bd.PrimaryName == "" {
		return ferrors.NewDiagnosticError(model.DiagValidationFailed, "", "", "primary_name is required", ferrors.ErrValidationFailed)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.checkInterfaceUniqueness(bd); err != nil {
		return err
	}

	payload, err := json.Marshal(bd)
	if err != nil {
		return err
	}
	if err := s.client.HSet(s.ctx, redisKey(tableBridgeDomains, bd.PrimaryName), "data", payload).Err(); err != nil {
		return err
	}

	s.cacheMu.Lock()
	s.cache.Set(bd.PrimaryName, bd, ttlcache.DefaultTTL)
	s.cacheMu.Unlock()
	return nil
}

// checkInterfaceUniqueness rejects an insert/update whose (device, iface)
// set overlaps a different record's set (spec §4.C6 invariant).
func (s *Store) checkInterfaceUniqueness(bd *model.ConsolidatedBridgeDomain) error {
	claimed := make(map[string]bool)
	for device, ifaces := range bd.Devices {
		for _, iface := range ifaces {
			claimed[device+"|"+iface.Name] = true
		}
	}
	if len(claimed) == 0 {
		return nil
	}

	all, err := s.listAllUncached()
	if err != nil {
		return err
	}
	for _, other := range all {
		if other.PrimaryName == bd.PrimaryName {
			continue
		}
		for device, ifaces := range other.Devices {
			for _, iface := range ifaces {
				key := device + "|" + iface.Name
				if claimed[key] {
					return ferrors.NewDiagnosticError(model.DiagValidationFailed, device, bd.PrimaryName,
						fmt.Sprintf("interface %s/%s already belongs to %s", device, iface.Name, other.PrimaryName),
						ferrors.ErrValidationFailed)
				}
			}
		}
	}
	return nil
}

// Get reads one ConsolidatedBridgeDomain by primary name, consulting the
// cache before Redis (spec §6: "TTL-cached read-through store").
func (s *Store) Get(name string) (*model.ConsolidatedBridgeDomain, error) {
	s.cacheMu.RLock()
	if item := s.cache.Get(name); item != nil {
		s.cacheMu.RUnlock()
		return item.Value(), nil
	}
	s.cacheMu.RUnlock()

	vals, err := s.client.HGetAll(s.ctx, redisKey(tableBridgeDomains, name)).Result()
	if err != nil {
		return nil, err
	}
	raw, ok := vals["data"]
	if !ok {
		return nil, ferrors.ErrNotFound
	}
	var bd model.ConsolidatedBridgeDomain
	if err := json.Unmarshal([]byte(raw), &bd); err != nil {
		return nil, err
	}

	s.cacheMu.Lock()
	s.cache.Set(name, &bd, ttlcache.DefaultTTL)
	s.cacheMu.Unlock()
	return &bd, nil
}

// List returns all ConsolidatedBridgeDomains matching filter, sorted by
// primary name for deterministic output.
func (s *Store) List(filter Filter) ([]*model.ConsolidatedBridgeDomain, error) {
	all, err := s.listAllUncached()
	if err != nil {
		return nil, err
	}
	var out []*model.ConsolidatedBridgeDomain
	for _, bd := range all {
		if filter.matches(bd) {
			out = append(out, bd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PrimaryName < out[j].PrimaryName })
	return out, nil
}

func (s *Store) listAllUncached() ([]*model.ConsolidatedBridgeDomain, error) {
	keys, err := s.client.Keys(s.ctx, redisKey(tableBridgeDomains, "*")).Result()
	if err != nil {
		return nil, err
	}
	var out []*model.ConsolidatedBridgeDomain
	for _, key := range keys {
		vals, err := s.client.HGetAll(s.ctx, key).Result()
		if err != nil {
			return nil, err
		}
		raw, ok := vals["data"]
		if !ok {
			continue
		}
		var bd model.ConsolidatedBridgeDomain
		if err := json.Unmarshal([]byte(raw), &bd); err != nil {
			return nil, err
		}
		out = append(out, &bd)
	}
	return out, nil
}

// Delete removes a ConsolidatedBridgeDomain by primary name and
// invalidates its cache entry.
func (s *Store) Delete(name string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.client.Del(s.ctx, redisKey(tableBridgeDomains, name)).Err(); err != nil {
		return err
	}
	s.cacheMu.Lock()
	s.cache.Delete(name)
	s.cacheMu.Unlock()
	return nil
}

// SaveSession persists an EditSession so an interrupted operator can
// resume via LoadSession (spec §4.C7).
func (s *Store) SaveSession(session *model.EditSession) error {
	payload, err := json.Marshal(sessionRecord{
		ID:          session.ID,
		BDName:      session.BDName,
		User:        session.User,
		Original:    session.Original,
		WorkingCopy: session.WorkingCopy,
		Changes:     session.Changes,
		UndoPos:     session.UndoPos(),
		Status:      session.Status,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return s.client.HSet(s.ctx, redisKey(tableEditSessions, session.ID), "data", payload).Err()
}

// LoadSession recovers a previously-saved EditSession by id.
func (s *Store) LoadSession(id string) (*model.EditSession, error) {
	vals, err := s.client.HGetAll(s.ctx, redisKey(tableEditSessions, id)).Result()
	if err != nil {
		return nil, err
	}
	raw, ok := vals["data"]
	if !ok {
		return nil, ferrors.ErrNotFound
	}
	var rec sessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	session := &model.EditSession{
		ID:          rec.ID,
		BDName:      rec.BDName,
		User:        rec.User,
		Original:    rec.Original,
		WorkingCopy: rec.WorkingCopy,
		Changes:     rec.Changes,
		Status:      rec.Status,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	session.SetUndoPos(rec.UndoPos)
	return session, nil
}

// DeleteSession removes a persisted session record (called on cancel/complete).
func (s *Store) DeleteSession(id string) error {
	return s.client.Del(s.ctx, redisKey(tableEditSessions, id)).Err()
}

// ActiveSessionForBD scans persisted sessions for one holding an open lock
// on bdName (spec §4.C7 AlreadyLocked check), returning its id if found.
func (s *Store) ActiveSessionForBD(bdName string) (string, bool, error) {
	keys, err := s.client.Keys(s.ctx, redisKey(tableEditSessions, "*")).Result()
	if err != nil {
		return "", false, err
	}
	for _, key := range keys {
		vals, err := s.client.HGetAll(s.ctx, key).Result()
		if err != nil {
			return "", false, err
		}
		raw, ok := vals["data"]
		if !ok {
			continue
		}
		var rec sessionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return "", false, err
		}
		if rec.BDName == bdName && rec.Status.IsOpen() {
			return rec.ID, true, nil
		}
	}
	return "", false, nil
}

// ActiveSessionSummary is the lightweight view of an open EditSession
// returned by ListActiveSessions, without the working-copy payload.
type ActiveSessionSummary struct {
	ID        string
	BDName    string
	User      string
	Status    model.SessionStatus
	Changes   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListActiveSessions scans persisted sessions for every one still open
// (spec §4.C7), for the "what's in flight" operator view (`bdctl session
// list`). Uses the same key scan as ActiveSessionForBD, generalized to
// every BD instead of one.
func (s *Store) ListActiveSessions() ([]ActiveSessionSummary, error) {
	keys, err := s.client.Keys(s.ctx, redisKey(tableEditSessions, "*")).Result()
	if err != nil {
		return nil, err
	}
	var out []ActiveSessionSummary
	for _, key := range keys {
		vals, err := s.client.HGetAll(s.ctx, key).Result()
		if err != nil {
			return nil, err
		}
		raw, ok := vals["data"]
		if !ok {
			continue
		}
		var rec sessionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, err
		}
		if !rec.Status.IsOpen() {
			continue
		}
		out = append(out, ActiveSessionSummary{
			ID:        rec.ID,
			BDName:    rec.BDName,
			User:      rec.User,
			Status:    rec.Status,
			Changes:   len(rec.Changes),
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return out, nil
}

// sessionRecord is the JSON-serializable shape of an EditSession; the
// model type keeps undoPos private, so the store mirrors it explicitly.
type sessionRecord struct {
	ID          string
	BDName      string
	User        string
	Original    *model.ConsolidatedBridgeDomain
	WorkingCopy *model.ConsolidatedBridgeDomain
	Changes     []model.Change
	UndoPos     int
	Status      model.SessionStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
