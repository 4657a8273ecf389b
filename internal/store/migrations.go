package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS employees (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	role       TEXT NOT NULL DEFAULT '',
	department TEXT NOT NULL DEFAULT '',
	is_admin   INTEGER NOT NULL DEFAULT 0 CHECK(is_admin IN (0, 1)),
	rating     REAL NOT NULL DEFAULT 5.0 CHECK(rating BETWEEN 1.0 AND 5.0),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS projects (
	id                   TEXT PRIMARY KEY,
	title                TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	priority             INTEGER NOT NULL DEFAULT 1 CHECK(priority BETWEEN 1 AND 5),
	status               TEXT NOT NULL DEFAULT 'pending'
		CHECK(status IN ('pending', 'in_progress', 'blocked', 'completed')),
	deadline             DATETIME,
	assigned_employee_id TEXT,
	created_by           TEXT NOT NULL DEFAULT '',
	created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT PRIMARY KEY,
	project_id   TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	employee_id  TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending'
		CHECK(status IN ('pending', 'accepted', 'rejected', 'superseded', 'assigned')),
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	responded_at DATETIME,
	UNIQUE(project_id, employee_id)
);

CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
CREATE INDEX IF NOT EXISTS idx_projects_assigned ON projects(assigned_employee_id);
CREATE INDEX IF NOT EXISTS idx_notifications_project ON notifications(project_id);
CREATE INDEX IF NOT EXISTS idx_notifications_employee ON notifications(employee_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_notifications_project_status
	ON notifications(project_id, status);

CREATE INDEX IF NOT EXISTS idx_notifications_employee_status
	ON notifications(employee_id, status);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
