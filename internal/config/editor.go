package config

import "time"

// EditorConfig tunes the server-hosted layout editing sessions.
type EditorConfig struct {
    CellPx        float64       // canvas cell size used to snap drag deltas
    SessionIdle   time.Duration // sessions untouched this long are closed
    SweepInterval time.Duration // how often idle sessions are looked for
}

func LoadEditorConfig() EditorConfig {
    c := EditorConfig{
        CellPx:        envFloat("EDITOR_CELL_PX", 30),
        SessionIdle:   envDur("EDITOR_SESSION_IDLE", 30*time.Minute),
        SweepInterval: envDur("EDITOR_SWEEP_INTERVAL", time.Minute),
    }
    if c.CellPx <= 0 { c.CellPx = 30 }
    if c.SweepInterval <= 0 { c.SweepInterval = time.Minute }
    return c
}
