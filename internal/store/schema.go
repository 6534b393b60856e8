package store

// Migration SQL statements

const migrationV1Template = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	parent_id TEXT,
	project_id TEXT NOT NULL,
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	priority INTEGER NOT NULL DEFAULT 2 CHECK(priority >= 0 AND priority <= 4),
	depth INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id);

CREATE TABLE IF NOT EXISTS dependencies (
	task_id TEXT NOT NULL,
	depends_on_id TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT 'blocks',
	created_at DATETIME NOT NULL,
	PRIMARY KEY (task_id, depends_on_id, type),
	FOREIGN KEY (task_id) REFERENCES tasks(id),
	FOREIGN KEY (depends_on_id) REFERENCES tasks(id)
);

CREATE INDEX IF NOT EXISTS idx_dependencies_task ON dependencies(task_id);
CREATE INDEX IF NOT EXISTS idx_dependencies_depends_on ON dependencies(depends_on_id);
`

const migrationV2Progress = `
CREATE TABLE IF NOT EXISTS progress (
	task_id TEXT NOT NULL,
	learner_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open',
	started_at DATETIME,
	completed_at DATETIME,
	close_reason TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (task_id, learner_id),
	FOREIGN KEY (task_id) REFERENCES tasks(id)
);

CREATE INDEX IF NOT EXISTS idx_progress_learner ON progress(learner_id);
`
