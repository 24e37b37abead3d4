package store

import "gorm.io/datatypes"

// RunModel is one persisted replay.
type RunModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	Strategy      string         `gorm:"column:strategy;index:idx_runs_strategy"`
	ParamsJSON    datatypes.JSON `gorm:"column:params_json;type:TEXT"`
	Ticks         int            `gorm:"column:ticks"`
	Buys          int            `gorm:"column:buys"`
	Sells         int            `gorm:"column:sells"`
	Thresholds    int            `gorm:"column:thresholds"`
	Fills         int            `gorm:"column:fills"`
	StartEquity   float64        `gorm:"column:start_equity"`
	FinalEquity   float64        `gorm:"column:final_equity"`
	ROI           float64        `gorm:"column:roi"`
	Complete      bool           `gorm:"column:complete"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
}

func (RunModel) TableName() string { return "runs" }

// ActionModel is one non-hold action of a run.
type ActionModel struct {
	ID       int64   `gorm:"column:id;primaryKey;autoIncrement"`
	RunID    string  `gorm:"column:run_id;index:idx_actions_run"`
	BarIndex int     `gorm:"column:bar_index"`
	Unix     int64   `gorm:"column:unix"`
	Kind     string  `gorm:"column:kind"`
	Price    float64 `gorm:"column:price"`
	Buying   float64 `gorm:"column:buying"`
	Selling  float64 `gorm:"column:selling"`
	Reason   string  `gorm:"column:reason"`
	Regime   string  `gorm:"column:regime"`
	Filled   bool    `gorm:"column:filled"`
}

func (ActionModel) TableName() string { return "run_actions" }
