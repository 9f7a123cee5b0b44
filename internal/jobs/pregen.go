// Package jobs holds scheduled background work.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pavelanni/interviewer/internal/extract"
	"github.com/pavelanni/interviewer/internal/llm"
	"github.com/pavelanni/interviewer/internal/metrics"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/store"
)

// DefaultRoles are the roles pre-generated when none are configured.
var DefaultRoles = []string{
	"Java Developer",
	"Python Developer",
	"Data Analyst",
	"Frontend Developer",
	"Backend Developer",
	"DevOps Engineer",
}

// PregenConfig controls the question-bank pre-generation job.
type PregenConfig struct {
	Schedule    string        // cron spec, e.g. "@hourly"
	Roles       []string      // roles to keep stocked
	MinBankSize int           // skip (role, level) pairs holding at least this many questions
	BatchSize   int           // questions requested per type and call
	Timeout     time.Duration // per generator call
}

// DefaultPregenConfig returns hourly pre-generation for DefaultRoles.
func DefaultPregenConfig() PregenConfig {
	return PregenConfig{
		Schedule:    "@hourly",
		Roles:       DefaultRoles,
		MinBankSize: 10,
		BatchSize:   5,
		Timeout:     60 * time.Second,
	}
}

// BankStore is the persistence the job needs.
type BankStore interface {
	CountBank(role string, level model.Difficulty) (int, error)
	InsertBankQuestions(role string, level model.Difficulty, questions []model.Question) (int, error)
	SetMetadata(key, value string) error
}

// QuestionGenerator produces raw question text.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, req llm.GenerateRequest) (string, error)
}

var levels = []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard}

// Pregenerator keeps the question bank stocked for popular roles.
type Pregenerator struct {
	store   BankStore
	gen     QuestionGenerator
	logger  *slog.Logger
	metrics *metrics.Metrics
	config  PregenConfig
	cron    *cron.Cron
}

// NewPregenerator creates the job. m may be nil.
func NewPregenerator(s BankStore, gen QuestionGenerator, logger *slog.Logger, m *metrics.Metrics, cfg PregenConfig) *Pregenerator {
	return &Pregenerator{
		store:   s,
		gen:     gen,
		logger:  logger.With("component", "pregen"),
		metrics: m,
		config:  cfg,
		cron:    cron.New(),
	}
}

// Start schedules RunOnce on the configured cron spec.
func (p *Pregenerator) Start() error {
	p.logger.Info("starting question pre-generation", "schedule", p.config.Schedule, "roles", len(p.config.Roles))
	_, err := p.cron.AddFunc(p.config.Schedule, func() {
		if _, err := p.RunOnce(context.Background()); err != nil {
			p.logger.Error("pre-generation run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule pre-generation %q: %w", p.config.Schedule, err)
	}
	p.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (p *Pregenerator) Stop() {
	<-p.cron.Stop().Done()
	p.logger.Info("question pre-generation stopped")
}

// RunOnce tops up every (role, level) pair below the minimum bank size and
// returns how many questions were added. Failures for one pair are logged
// and do not stop the others.
func (p *Pregenerator) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	added := 0
	for _, role := range p.config.Roles {
		for _, level := range levels {
			if err := ctx.Err(); err != nil {
				return added, err
			}
			n, err := p.store.CountBank(role, level)
			if err != nil {
				return added, fmt.Errorf("count bank for %s/%s: %w", role, level, err)
			}
			if n >= p.config.MinBankSize {
				p.logger.Debug("bank sufficient", "role", role, "level", level, "count", n)
				continue
			}
			for _, kind := range []model.QuestionType{model.QuestionSubjective, model.QuestionMCQ} {
				n, err := p.fill(ctx, role, level, kind)
				if err != nil {
					p.logger.Warn("pre-generation failed", "role", role, "level", level, "kind", kind, "error", err)
					continue
				}
				added += n
			}
		}
	}

	if err := p.store.SetMetadata(store.MetaLastPregenRun, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return added, fmt.Errorf("record run: %w", err)
	}
	if err := p.store.SetMetadata(store.MetaLastPregenAdded, strconv.Itoa(added)); err != nil {
		return added, fmt.Errorf("record run: %w", err)
	}
	p.logger.Info("pre-generation done", "added", added, "elapsed", time.Since(start))
	return added, nil
}

func (p *Pregenerator) fill(ctx context.Context, role string, level model.Difficulty, kind model.QuestionType) (int, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()
	raw, err := p.gen.GenerateQuestions(callCtx, llm.GenerateRequest{
		Role:  role,
		Level: level,
		Count: p.config.BatchSize,
		Kind:  kind,
	})
	if err != nil {
		return 0, err
	}
	res := extract.Extract(raw, kind)
	p.metrics.Extraction(res.Tier)
	if len(res.Questions) == 0 {
		return 0, nil
	}
	n, err := p.store.InsertBankQuestions(role, level, res.Questions)
	if err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}
	p.metrics.BankInserted(string(level), n)
	return n, nil
}
