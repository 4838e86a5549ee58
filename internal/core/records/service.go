package records

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"

	"Plover/internal/atproto/pds"
	"Plover/internal/atproto/utils"
	"Plover/internal/core/richtext"
)

// recordService implements the Service interface over a PDS client
type recordService struct {
	client  pds.Client
	extract EntityExtractor
	now     func() time.Time
	logger  *slog.Logger

	mu      sync.Mutex
	lastTID int64
	clockID uint
}

// maxClockID bounds the 10-bit TID clock identifier.
const maxClockID = 1 << 10

// Option configures the service.
type Option func(*recordService)

// WithClock overrides the clock used for createdAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *recordService) {
		s.now = now
	}
}

// WithClockID fixes the TID clock identifier. By default each service picks
// one at random, so two writers in the same microsecond get distinct keys.
func WithClockID(id uint) Option {
	return func(s *recordService) {
		s.clockID = id % maxClockID
	}
}

// WithEntityExtractor overrides post entity extraction.
func WithEntityExtractor(extract EntityExtractor) Option {
	return func(s *recordService) {
		s.extract = extract
	}
}

// NewService creates a new record service instance
func NewService(client pds.Client, logger *slog.Logger, opts ...Option) Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &recordService{
		client:  client,
		extract: richtext.ExtractEntities,
		now:     time.Now,
		logger:  logger,
		clockID: rand.UintN(maxClockID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// requireActor rejects an empty acting identity before any network call.
func requireActor(actor syntax.DID) error {
	if actor == "" {
		return ErrMissingIdentity
	}
	return nil
}

// nextRKey generates a TID record key. Keys are strictly increasing even
// when the clock repeats.
func (s *recordService) nextRKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	micros := s.now().UnixMicro()
	if micros <= s.lastTID {
		micros = s.lastTID + 1
	}
	s.lastTID = micros
	return syntax.NewTID(micros, s.clockID).String()
}

func (s *recordService) createdAt() string {
	return utils.FormatCreatedAt(s.now())
}

// create writes a new record to the actor's repository.
func (s *recordService) create(ctx context.Context, actor syntax.DID, collection, rkey string, record any) (RecordRef, error) {
	uri, cid, err := s.client.CreateRecord(ctx, actor.String(), collection, rkey, record)
	if err != nil {
		s.logger.Error("failed to create record on PDS",
			"error", err,
			"actor", actor,
			"collection", collection)
		return RecordRef{}, fmt.Errorf("failed to create %s record: %w", collection, err)
	}

	s.logger.Info("record created",
		"actor", actor,
		"collection", collection,
		"uri", uri,
		"cid", cid)

	return RecordRef{URI: uri, CID: cid}, nil
}

// deleteByURI deletes the record addressed by uri. The repository and record
// key always come from the URI itself; a URI that does not parse fails before
// the PDS is contacted.
func (s *recordService) deleteByURI(ctx context.Context, collection, uri string) error {
	loc, err := utils.ParseRecordURI(uri)
	if err != nil {
		return err
	}

	if err := s.client.DeleteRecord(ctx, loc.Authority, collection, loc.RKey); err != nil {
		s.logger.Error("failed to delete record on PDS",
			"error", err,
			"uri", uri,
			"collection", collection)
		return fmt.Errorf("failed to delete %s record: %w", collection, err)
	}

	s.logger.Info("record deleted",
		"uri", uri,
		"collection", collection)

	return nil
}
