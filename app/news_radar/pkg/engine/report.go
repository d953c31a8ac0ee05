package engine

import "time"

// 触发来源
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerStartup  = "startup"
	TriggerCLI      = "cli"
	TriggerAnalyze  = "analyze"
)

// RunReport 一轮运行的统计
type RunReport struct {
	Trigger        string    `json:"trigger"`
	Provider       string    `json:"provider,omitempty"`
	Fetched        int       `json:"fetched"`
	Skipped        int       `json:"skipped"`
	Duplicates     int       `json:"duplicates"`
	Persisted      int       `json:"persisted"`
	Archived       int       `json:"archived"`
	Analyzed       int       `json:"analyzed"`
	AnalysisFailed int       `json:"analysis_failed"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Error          string    `json:"error,omitempty"`
}

func newReport(trigger string) *RunReport {
	return &RunReport{Trigger: trigger, StartedAt: time.Now().UTC()}
}

// Status 引擎状态快照
type Status struct {
	State   State      `json:"state"`
	LastRun *RunReport `json:"last_run,omitempty"`
}
