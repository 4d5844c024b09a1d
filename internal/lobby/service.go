package lobby

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/meegol/SIC-Gambling/internal/game/engine"
)

type pendingOp struct {
	entry Entry
	drop  bool
}

// Service 维护大厅目录。Publish/Drop 在房间 goroutine 上调用，只记录最新状态并立即返回；
// 写入由 Run 合并完成。
type Service struct {
	repo Repo
	ttl  time.Duration
	log  *log.Logger

	mu      sync.Mutex
	pending map[string]pendingOp
	notify  chan struct{}
}

func NewService(repo Repo, ttl time.Duration, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		repo:    repo,
		ttl:     ttl,
		log:     logger.WithPrefix("lobby"),
		pending: make(map[string]pendingOp),
		notify:  make(chan struct{}, 1),
	}
}

func (s *Service) queue(key string, op pendingOp) {
	s.mu.Lock()
	s.pending[key] = op
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Publish records the latest status of a room.
func (s *Service) Publish(st engine.Status) {
	s.queue(memKey(st.Game, st.Code), pendingOp{entry: Entry{
		Game:      st.Game,
		Code:      st.Code,
		Phase:     st.Phase,
		Players:   st.Players,
		UpdatedAt: st.LastActive,
	}})
}

// Drop removes a reaped room from the directory.
func (s *Service) Drop(game, code string) {
	s.queue(memKey(game, code), pendingOp{entry: Entry{Game: game, Code: code}, drop: true})
}

// Flush writes every pending change to the repo.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = make(map[string]pendingOp)
	s.mu.Unlock()

	var errs []error
	for _, op := range batch {
		var err error
		if op.drop {
			err = s.repo.Remove(ctx, op.entry.Game, op.entry.Code)
		} else {
			err = s.repo.Save(ctx, op.entry, s.ttl)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run flushes pending changes until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	for {
		select {
		case <-s.notify:
			if err := s.Flush(ctx); err != nil {
				s.log.Warn("flush failed", "err", err)
			}
		case <-ctx.Done():
			// 尽力写完最后一批
			flushCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return s.Flush(flushCtx)
		}
	}
}

func (s *Service) List(ctx context.Context, game string) ([]Entry, error) {
	return s.repo.List(ctx, game)
}
