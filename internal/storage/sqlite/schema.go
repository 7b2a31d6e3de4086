package sqlite

const schemaSQL = `
-- Test takers. anp_seq is the external sequence number of the completed
-- test record in the upstream system.
CREATE TABLE IF NOT EXISTS users (
	user_id TEXT PRIMARY KEY,
	anp_seq INTEGER NOT NULL UNIQUE,
	name TEXT,
	test_completed_at INTEGER,
	created_at INTEGER NOT NULL
);

-- ETL job state machine. Terminal rows (success/failure/partial) are never
-- mutated; retry creates a new row.
CREATE TABLE IF NOT EXISTS chat_etl_jobs (
	job_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(user_id),
	anp_seq INTEGER NOT NULL,
	status TEXT NOT NULL,
	progress_percentage INTEGER NOT NULL DEFAULT 0,
	current_step TEXT,
	completed_steps INTEGER NOT NULL DEFAULT 0,
	total_steps INTEGER NOT NULL DEFAULT 7,
	started_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	completed_at INTEGER,
	error_message TEXT,
	error_type TEXT,
	failed_stage TEXT,
	retry_count INTEGER NOT NULL DEFAULT 0,
	query_results_summary TEXT,
	documents_created TEXT
);

CREATE INDEX IF NOT EXISTS idx_jobs_user ON chat_etl_jobs(user_id, started_at DESC);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON chat_etl_jobs(status);

-- Chunked thematic documents with embedded vectors (float32 little-endian BLOB)
CREATE TABLE IF NOT EXISTS chat_documents (
	doc_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(user_id),
	doc_type TEXT NOT NULL,
	content TEXT NOT NULL,
	summary_text TEXT NOT NULL,
	searchable_text TEXT,
	metadata TEXT NOT NULL,
	embedding BLOB,
	embedding_model TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_user ON chat_documents(user_id);
CREATE INDEX IF NOT EXISTS idx_documents_user_type ON chat_documents(user_id, doc_type);

-- Legacy source tables, mirrored from the upstream aptitude-test schema.
-- The query catalog reads these by anp_seq; the ETL never writes them.
CREATE TABLE IF NOT EXISTS legacy_test_records (
	anp_seq INTEGER PRIMARY KEY,
	user_name TEXT,
	test_type TEXT,
	status TEXT,
	completed_at INTEGER
);

CREATE TABLE IF NOT EXISTS legacy_tendencies (
	anp_seq INTEGER NOT NULL,
	tendency_name TEXT NOT NULL,
	rank INTEGER NOT NULL,
	score REAL,
	percentile REAL,
	description TEXT
);

CREATE INDEX IF NOT EXISTS idx_legacy_tendencies ON legacy_tendencies(anp_seq, rank);

CREATE TABLE IF NOT EXISTS legacy_thinking_skills (
	anp_seq INTEGER NOT NULL,
	skill_name TEXT NOT NULL,
	score REAL,
	percentile REAL,
	description TEXT
);

CREATE TABLE IF NOT EXISTS legacy_career_recommendations (
	anp_seq INTEGER NOT NULL,
	jo_name TEXT NOT NULL,
	match_rate REAL,
	reason TEXT,
	majors TEXT
);

CREATE TABLE IF NOT EXISTS legacy_competencies (
	anp_seq INTEGER NOT NULL,
	competency_name TEXT NOT NULL,
	score REAL,
	percentile REAL,
	description TEXT
);

CREATE TABLE IF NOT EXISTS legacy_learning_styles (
	anp_seq INTEGER NOT NULL,
	style_name TEXT NOT NULL,
	description TEXT,
	study_methods TEXT
);

CREATE TABLE IF NOT EXISTS legacy_image_preference_stats (
	anp_seq INTEGER PRIMARY KEY,
	total_image_count INTEGER,
	response_count INTEGER,
	response_rate REAL
);

CREATE TABLE IF NOT EXISTS legacy_preference_data (
	anp_seq INTEGER NOT NULL,
	preference_name TEXT NOT NULL,
	rank INTEGER NOT NULL,
	response_rate REAL,
	description TEXT
);

CREATE TABLE IF NOT EXISTS legacy_preference_jobs (
	anp_seq INTEGER NOT NULL,
	preference_name TEXT NOT NULL,
	preference_type TEXT,
	jo_name TEXT NOT NULL,
	jo_outline TEXT,
	jo_mainbusiness TEXT,
	majors TEXT
);
`
