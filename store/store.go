// Package store persists replay reports for the external optimizer.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evdnx/gosignal/backtest"
	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/types"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var ErrRunNotFound = errors.New("run not found")

// Run is a stored report summary with the parameters it ran with.
type Run struct {
	ID          string
	Strategy    string
	Params      map[string]float64
	Ticks       int
	Buys        int
	Sells       int
	Thresholds  int
	Fills       int
	StartEquity float64
	Final       float64
	ROI         float64
	Complete    bool
	Created     time.Time
}

type SQLiteStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	return open(dsn)
}

// NewMemoryStore opens a private in-memory database.
func NewMemoryStore() (*SQLiteStore, error) {
	return open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
}

func open(dsn string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&RunModel{}, &ActionModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveRun stores rep and its actions in one transaction and returns the
// new run ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, rep backtest.Report, params *config.Params) (string, error) {
	raw, err := json.Marshal(params.Map())
	if err != nil {
		return "", err
	}
	run := RunModel{
		ID:            uuid.NewString(),
		Strategy:      rep.Strategy,
		ParamsJSON:    datatypes.JSON(raw),
		Ticks:         rep.Ticks,
		Buys:          rep.Buys,
		Sells:         rep.Sells,
		Thresholds:    rep.Thresholds,
		Fills:         rep.Fills,
		StartEquity:   rep.StartEquity,
		FinalEquity:   rep.Final,
		ROI:           rep.ROI,
		Complete:      rep.Complete,
		CreatedAtUnix: s.now().Unix(),
	}
	actions := make([]ActionModel, len(rep.Records))
	for i, r := range rep.Records {
		actions[i] = ActionModel{
			RunID:    run.ID,
			BarIndex: r.Index,
			Unix:     r.Unix,
			Kind:     r.Kind.String(),
			Price:    r.Price,
			Buying:   r.Buying,
			Selling:  r.Selling,
			Reason:   r.Reason,
			Regime:   r.Regime,
			Filled:   r.Filled,
		}
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(actions) == 0 {
			return nil
		}
		return tx.CreateInBatches(actions, 200).Error
	})
	if err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	return run.ID, nil
}

// ListRuns returns the runs of strategy, best ROI first. An empty
// strategy lists every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, strategy string) ([]Run, error) {
	q := s.db.WithContext(ctx).Model(&RunModel{})
	if strategy != "" {
		q = q.Where("strategy = ?", strategy)
	}
	var rows []RunModel
	if err := q.Order("roi DESC").Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Run, 0, len(rows))
	for _, r := range rows {
		run, err := r.toRun()
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

// GetRun loads one run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (Run, error) {
	var row RunModel
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}
	return row.toRun()
}

// Actions returns the recorded actions of a run in bar order.
func (s *SQLiteStore) Actions(ctx context.Context, runID string) ([]backtest.Record, error) {
	var rows []ActionModel
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("bar_index ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]backtest.Record, len(rows))
	for i, r := range rows {
		out[i] = backtest.Record{
			Index:   r.BarIndex,
			Unix:    r.Unix,
			Kind:    kindOf(r.Kind),
			Price:   r.Price,
			Buying:  r.Buying,
			Selling: r.Selling,
			Reason:  r.Reason,
			Regime:  r.Regime,
			Filled:  r.Filled,
		}
	}
	return out, nil
}

func (m RunModel) toRun() (Run, error) {
	var params map[string]float64
	if len(m.ParamsJSON) > 0 {
		if err := json.Unmarshal(m.ParamsJSON, &params); err != nil {
			return Run{}, fmt.Errorf("run %s params: %w", m.ID, err)
		}
	}
	return Run{
		ID:          m.ID,
		Strategy:    m.Strategy,
		Params:      params,
		Ticks:       m.Ticks,
		Buys:        m.Buys,
		Sells:       m.Sells,
		Thresholds:  m.Thresholds,
		Fills:       m.Fills,
		StartEquity: m.StartEquity,
		Final:       m.FinalEquity,
		ROI:         m.ROI,
		Complete:    m.Complete,
		Created:     time.Unix(m.CreatedAtUnix, 0),
	}, nil
}

func kindOf(s string) types.ActionKind {
	for _, k := range []types.ActionKind{types.ActionBuy, types.ActionSell, types.ActionThresholds} {
		if k.String() == s {
			return k
		}
	}
	return types.ActionHold
}
