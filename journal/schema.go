package journal

// Schema is applied on every open. Money and quantities are TEXT so
// decimals survive the round trip exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS wallet (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	initial TEXT NOT NULL,
	balance TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS holdings (
	symbol TEXT PRIMARY KEY,
	quantity TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	trade_id TEXT NOT NULL UNIQUE,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL CHECK (side IN ('BUY', 'SELL')),
	price TEXT NOT NULL,
	quantity TEXT NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(time);
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
`
