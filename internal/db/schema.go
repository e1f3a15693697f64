package db

const schemaSQL = `
-- ===========================================================================
-- EVENT LOG
-- ===========================================================================

CREATE TABLE IF NOT EXISTS player_events (
  event_id TEXT PRIMARY KEY,
  timestamp TEXT NOT NULL DEFAULT (datetime('now')),
  type TEXT NOT NULL,
  level TEXT NOT NULL DEFAULT 'INFO',
  request_id TEXT,
  command TEXT,
  message TEXT NOT NULL,
  payload TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_player_events_timestamp ON player_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_player_events_type ON player_events(type);
CREATE INDEX IF NOT EXISTS idx_player_events_level ON player_events(level);
CREATE INDEX IF NOT EXISTS idx_player_events_command ON player_events(command);
`
