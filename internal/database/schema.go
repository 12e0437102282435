package database

// schemaStatements is the idempotent DDL applied on every successful pool
// initialization. The partial unique index on agent_assignments is the
// load-bearing constraint: concurrent registrations may race up to the
// assignment insert, but only one active row per agent can ever commit.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ai_agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_by TEXT,
		website TEXT,
		access TEXT,
		pricing_model TEXT,
		category TEXT,
		industry TEXT,
		short_description TEXT,
		long_description TEXT,
		key_features JSONB DEFAULT '[]'::jsonb,
		use_cases JSONB DEFAULT '[]'::jsonb,
		tags JSONB DEFAULT '[]'::jsonb,
		logo TEXT,
		logo_file_name TEXT,
		image TEXT,
		image_file_name TEXT,
		video TEXT,
		upvotes INTEGER DEFAULT 0,
		upvoters JSONB DEFAULT '[]'::jsonb,
		approved BOOLEAN DEFAULT false,
		created_at TIMESTAMP WITHOUT TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITHOUT TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		slug TEXT,
		version TEXT,
		featured BOOLEAN DEFAULT false
	)`,

	`CREATE TABLE IF NOT EXISTS researchers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT,
		github_username TEXT,
		avatar_url TEXT,
		repository_url TEXT,
		linkedin_profile TEXT,
		created_at TIMESTAMP WITHOUT TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS agent_assignments (
		id BIGSERIAL PRIMARY KEY,
		researcher_id TEXT NOT NULL REFERENCES researchers(id),
		agent_id TEXT NOT NULL REFERENCES ai_agents(id),
		assigned_at TIMESTAMP WITHOUT TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		status TEXT NOT NULL DEFAULT 'active'
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS agent_assignments_active_agent_idx
		ON agent_assignments (agent_id) WHERE status = 'active'`,

	`CREATE TABLE IF NOT EXISTS agent_documentation (
		id BIGSERIAL PRIMARY KEY,
		assignment_id BIGINT NOT NULL REFERENCES agent_assignments(id),
		findings TEXT,
		recommendations TEXT,
		summary TEXT,
		research_data JSONB,
		status TEXT NOT NULL DEFAULT 'submitted',
		created_at TIMESTAMP WITHOUT TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`,
}
