package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/lernado/sage/internal/domain/model"
	"github.com/lernado/sage/pkg/logger"
	"github.com/lernado/sage/pkg/metrics"
)

// Key prefixes for Badger storage.
const (
	profileKeyPrefix     = "profile:"
	contentKeyPrefix     = "content:"
	conceptIdxKeyPrefix  = "concept_idx:"
	interactionKeyPrefix = "interaction:"
	reportKeyPrefix      = "report:"
)

// BadgerStore implements Store on BadgerDB. Badger transactions use
// snapshot isolation with conflict detection, which is what makes
// UpdateProfile safe under concurrent consumers.
type BadgerStore struct {
	db     *badger.DB
	logger logger.Logger
}

// NewBadgerStore opens the database and returns the store. An empty
// data directory runs Badger in-memory.
func NewBadgerStore(opts ...Option) (*BadgerStore, error) {
	cfg := newOptions(opts...)

	var badgerOpts badger.Options
	if cfg.dataDir == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(cfg.dataDir)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	return &BadgerStore{
		db:     db,
		logger: cfg.logger,
	}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(op, float64(time.Since(start).Milliseconds()))
}

// GetProfile returns a snapshot of the learner profile.
func (s *BadgerStore) GetProfile(ctx context.Context, userID string) (*model.LearnerProfile, error) {
	defer observe("get_profile", time.Now())

	var p model.LearnerProfile
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(profileKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrProfileNotFound
		}
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProfile provisions a new learner profile.
func (s *BadgerStore) CreateProfile(ctx context.Context, p *model.LearnerProfile) error {
	defer observe("create_profile", time.Now())

	if p.UserID == "" {
		return fmt.Errorf("create profile: empty user id")
	}
	if p.CompetenceMap == nil {
		p.CompetenceMap = model.CompetenceMap{}
	}
	p.UpdatedAt = time.Now().UTC()

	key := []byte(profileKeyPrefix + p.UserID)
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return ErrProfileExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check profile: %w", err)
		}
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal profile: %w", err)
		}
		return txn.Set(key, data)
	})
	return err
}

// UpdateProfile applies mutate inside one transaction. The whole
// profile, competence map included, is written back as a unit; a
// concurrent writer on the same key surfaces as ErrWriteConflict.
func (s *BadgerStore) UpdateProfile(ctx context.Context, userID string, mutate func(*model.LearnerProfile) error) (*model.LearnerProfile, error) {
	defer observe("update_profile", time.Now())

	key := []byte(profileKeyPrefix + userID)
	var updated *model.LearnerProfile

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrProfileNotFound
		}
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}

		var p model.LearnerProfile
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		}); err != nil {
			return fmt.Errorf("unmarshal profile: %w", err)
		}

		if err := mutate(&p); err != nil {
			return err
		}
		p.Version++
		p.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(&p)
		if err != nil {
			return fmt.Errorf("marshal profile: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set profile: %w", err)
		}
		updated = &p
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return nil, fmt.Errorf("%w: profile %s", ErrWriteConflict, userID)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// PutContent stores a content node and, when the metadata binds it to a
// concept, writes the concept index entry used by recommendations.
func (s *BadgerStore) PutContent(ctx context.Context, n *model.ContentNode) error {
	defer observe("put_content", time.Now())

	if n.ID == "" {
		return fmt.Errorf("put content: empty node id")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(contentKeyPrefix+n.ID), data); err != nil {
			return fmt.Errorf("set content: %w", err)
		}
		if concept := n.ConceptID(); concept != "" {
			idxKey := []byte(conceptIdxKeyPrefix + concept + ":" + n.ID)
			if err := txn.Set(idxKey, []byte(n.ID)); err != nil {
				return fmt.Errorf("set concept index: %w", err)
			}
		}
		return nil
	})
}

// FindContentByConcept returns the first node indexed under the concept.
func (s *BadgerStore) FindContentByConcept(ctx context.Context, conceptID string) (*model.ContentNode, error) {
	defer observe("find_content", time.Now())

	var node *model.ContentNode
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(conceptIdxKeyPrefix + conceptID + ":")
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		it.Rewind()
		if !it.Valid() {
			return ErrContentNotFound
		}

		var nodeID string
		if err := it.Item().Value(func(val []byte) error {
			nodeID = string(val)
			return nil
		}); err != nil {
			return fmt.Errorf("read index: %w", err)
		}

		item, err := txn.Get([]byte(contentKeyPrefix + nodeID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrContentNotFound
		}
		if err != nil {
			return fmt.Errorf("get content: %w", err)
		}
		var n model.ContentNode
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &n)
		}); err != nil {
			return fmt.Errorf("unmarshal content: %w", err)
		}
		node = &n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// RecordInteraction appends one activity-log row.
func (s *BadgerStore) RecordInteraction(ctx context.Context, in *model.Interaction) error {
	defer observe("record_interaction", time.Now())

	if in.UserID == "" || in.ID == "" {
		return fmt.Errorf("record interaction: missing id or user id")
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal interaction: %w", err)
	}

	key := fmt.Sprintf("%s%s:%020d:%s", interactionKeyPrefix, in.UserID, in.CreatedAt.UnixNano(), in.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// CountInteractions counts rows for userID with CreatedAt in [from, to).
func (s *BadgerStore) CountInteractions(ctx context.Context, userID string, from, to time.Time) (int, error) {
	defer observe("count_interactions", time.Now())

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(interactionKeyPrefix + userID + ":")
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var in model.Interaction
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &in)
			}); err != nil {
				return fmt.Errorf("unmarshal interaction: %w", err)
			}
			if !in.CreatedAt.Before(from) && in.CreatedAt.Before(to) {
				count++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SaveReport persists a generated report.
func (s *BadgerStore) SaveReport(ctx context.Context, r *model.Report) error {
	defer observe("save_report", time.Now())

	if r.ID == "" || r.UserID == "" {
		return fmt.Errorf("save report: missing id or user id")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	key := fmt.Sprintf("%s%s:%020d", reportKeyPrefix, r.UserID, r.GeneratedAt.UnixNano())
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// LatestReport returns the most recently generated report for the user.
func (s *BadgerStore) LatestReport(ctx context.Context, userID string) (*model.Report, error) {
	defer observe("latest_report", time.Now())

	var report *model.Report
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(reportKeyPrefix + userID + ":")
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:  prefix,
			Reverse: true,
		})
		defer it.Close()

		// Reverse iteration: seek past the last possible key for this user.
		seek := append(append([]byte{}, prefix...), 0xFF)
		it.Seek(seek)
		if !it.Valid() {
			return ErrReportNotFound
		}

		var r model.Report
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		}); err != nil {
			return fmt.Errorf("unmarshal report: %w", err)
		}
		report = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
