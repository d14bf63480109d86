package store

const schemaV1 = `
CREATE TABLE IF NOT EXISTS source_accounts (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	provider     TEXT NOT NULL,
	display_name TEXT,
	created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tracks (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	artists            TEXT NOT NULL,
	title              TEXT NOT NULL,
	normalized_artists TEXT NOT NULL,
	normalized_title   TEXT NOT NULL,
	duration_ms        INTEGER,
	isrc               TEXT,
	album              TEXT,
	album_artist       TEXT,
	cover_url          TEXT,
	genre              TEXT,
	bpm                REAL,
	release_date       TEXT,
	spotify_added_at   DATETIME,
	explicit           BOOLEAN NOT NULL DEFAULT 0,
	label              TEXT,
	composer           TEXT,
	copyright          TEXT,
	version            TEXT,
	description        TEXT,
	url                TEXT,
	audio_quality      TEXT,
	audio_modes        TEXT,
	replay_gain        REAL,
	peak               REAL,
	key_name           TEXT,
	key_scale          TEXT,
	barcode            TEXT,
	catalog_number     TEXT,
	release_type       TEXT,
	annotation         TEXT,
	created_at         DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at         DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tracks_normalized ON tracks(normalized_artists, normalized_title);

CREATE TABLE IF NOT EXISTS track_identities (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	track_id          INTEGER NOT NULL REFERENCES tracks(id),
	provider          TEXT NOT NULL,
	provider_track_id TEXT NOT NULL,
	provider_url      TEXT,
	fingerprint       TEXT,
	created_at        DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(provider, provider_track_id)
);

CREATE INDEX IF NOT EXISTS idx_track_identities_track_id ON track_identities(track_id);

CREATE TABLE IF NOT EXISTS playlists (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	provider             TEXT NOT NULL,
	provider_playlist_id TEXT,
	name                 TEXT NOT NULL,
	owner                TEXT,
	snapshot             TEXT,
	source_account_id    INTEGER REFERENCES source_accounts(id),
	selected             BOOLEAN NOT NULL DEFAULT 0,
	created_at           DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at           DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(provider, provider_playlist_id)
);

CREATE TABLE IF NOT EXISTS playlist_tracks (
	playlist_id INTEGER NOT NULL REFERENCES playlists(id),
	track_id    INTEGER NOT NULL REFERENCES tracks(id),
	position    INTEGER,
	added_at    DATETIME,
	PRIMARY KEY (playlist_id, track_id)
);

CREATE INDEX IF NOT EXISTS idx_playlist_tracks_track_id ON playlist_tracks(track_id);

CREATE TABLE IF NOT EXISTS search_candidates (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	track_id        INTEGER NOT NULL REFERENCES tracks(id),
	provider        TEXT NOT NULL,
	external_id     TEXT NOT NULL,
	url             TEXT NOT NULL,
	title           TEXT NOT NULL,
	channel         TEXT,
	duration_sec    INTEGER,
	thumbnail_url   TEXT,
	score           REAL NOT NULL DEFAULT 0,
	chosen          BOOLEAN NOT NULL DEFAULT 0,
	score_breakdown TEXT,
	created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_search_candidates_track_id ON search_candidates(track_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_search_candidates_one_chosen
	ON search_candidates(track_id) WHERE chosen = 1;

CREATE TABLE IF NOT EXISTS downloads (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	track_id       INTEGER NOT NULL REFERENCES tracks(id),
	candidate_id   INTEGER REFERENCES search_candidates(id),
	provider       TEXT NOT NULL,
	status         TEXT NOT NULL,
	filepath       TEXT,
	format         TEXT,
	filesize_bytes INTEGER,
	checksum       TEXT,
	error_message  TEXT,
	created_at     DATETIME DEFAULT CURRENT_TIMESTAMP,
	started_at     DATETIME,
	finished_at    DATETIME
);

CREATE INDEX IF NOT EXISTS idx_downloads_track_id ON downloads(track_id);
CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads(status);

CREATE TABLE IF NOT EXISTS library_files (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	track_id   INTEGER NOT NULL REFERENCES tracks(id),
	filepath   TEXT NOT NULL UNIQUE,
	file_size  INTEGER,
	file_mtime DATETIME,
	checksum   TEXT,
	container  TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_library_files_track_id ON library_files(track_id);

CREATE TABLE IF NOT EXISTS oauth_tokens (
	id                      INTEGER PRIMARY KEY AUTOINCREMENT,
	source_account_id       INTEGER NOT NULL UNIQUE REFERENCES source_accounts(id),
	access_token            TEXT NOT NULL,
	refresh_token_encrypted TEXT NOT NULL,
	expires_at              DATETIME NOT NULL,
	scope                   TEXT NOT NULL DEFAULT '',
	updated_at              DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS oauth_states (
	state         TEXT PRIMARY KEY,
	code_verifier TEXT NOT NULL,
	created_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
	expires_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS cache (
	key        TEXT PRIMARY KEY,
	data       BLOB,
	expires_at DATETIME
);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
