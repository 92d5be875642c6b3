package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/session"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
)

// Phase 登录态恢复流程的阶段
type Phase int

const (
	PhaseEnsureSession Phase = iota
	PhaseAttempt1
	PhaseRecoverSession
	PhaseAttempt2
	PhaseDone
	PhaseFatal
)

func (p Phase) String() string {
	switch p {
	case PhaseEnsureSession:
		return "ensure_session"
	case PhaseAttempt1:
		return "attempt_1"
	case PhaseRecoverSession:
		return "recover_session"
	case PhaseAttempt2:
		return "attempt_2"
	case PhaseDone:
		return "done"
	case PhaseFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// AttemptFunc 一次完整的爬取尝试, 通常是 Orchestrator.Crawl
type AttemptFunc func(ctx context.Context) (*Result, error)

// Recovery 第一次尝试失败后备份登录态, 强制重新登录, 再试一次
type Recovery struct {
	attempt  AttemptFunc
	store    *session.Store
	auth     session.Authenticator
	debugDir string
	log      logger.Logger
	now      func() time.Time
	phase    Phase
}

// NewRecovery auth 为 nil 时跳过所有交互登录, 只做备份与重试
func NewRecovery(attempt AttemptFunc, store *session.Store, auth session.Authenticator, debugDir string, log logger.Logger) *Recovery {
	return &Recovery{
		attempt:  attempt,
		store:    store,
		auth:     auth,
		debugDir: debugDir,
		log:      log,
		now:      time.Now,
	}
}

func (r *Recovery) Phase() Phase {
	return r.phase
}

// Run 返回最后一次尝试的结果. 两次都失败时返回包装了 ErrFatal 的错误; ctx 取消时不再重试
func (r *Recovery) Run(ctx context.Context) (*Result, error) {
	var (
		res     *Result
		lastErr error
	)
	r.phase = PhaseEnsureSession
	for {
		r.log.Debug("进入阶段", logger.String("phase", r.phase.String()))
		switch r.phase {
		case PhaseEnsureSession:
			if r.auth != nil {
				if err := session.EnsureLoginState(ctx, r.store, r.auth, false, r.log); err != nil {
					lastErr = err
					r.phase = PhaseFatal
					continue
				}
			}
			r.phase = PhaseAttempt1

		case PhaseAttempt1, PhaseAttempt2:
			var err error
			res, err = r.attempt(ctx)
			if err == nil {
				r.phase = PhaseDone
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			lastErr = err
			if r.phase == PhaseAttempt1 {
				r.log.Warn("第一次尝试失败, 重新登录后重试", logger.Error(err))
				r.phase = PhaseRecoverSession
			} else {
				r.phase = PhaseFatal
			}

		case PhaseRecoverSession:
			bak, err := r.store.Backup(r.now())
			if err != nil {
				r.log.Warn("备份登录态失败", logger.Error(err))
			} else if bak != "" {
				r.log.Info("旧登录态已备份", logger.String("backup", bak))
			}
			if r.auth != nil {
				if err := session.EnsureLoginState(ctx, r.store, r.auth, true, r.log); err != nil {
					lastErr = err
					r.phase = PhaseFatal
					continue
				}
			}
			r.phase = PhaseAttempt2

		case PhaseDone:
			return res, nil

		case PhaseFatal:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			err := fmt.Errorf("%w, 调试截图见 %s: %w", ErrFatal, r.debugDir, lastErr)
			r.log.Error("爬取失败", logger.Error(err))
			return res, err
		}
	}
}
