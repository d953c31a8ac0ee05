package storage

import "strings"

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS articles (
	id TEXT PRIMARY KEY,
	external_id VARCHAR(255) UNIQUE,
	title TEXT NOT NULL,
	description TEXT,
	content TEXT,
	url VARCHAR(2048) NOT NULL UNIQUE,
	image_url VARCHAR(2048),
	source_name VARCHAR(255),
	language VARCHAR(10) NOT NULL DEFAULT 'es',
	country VARCHAR(255),
	published_at {{ts}},
	fetched_at {{ts}} NOT NULL,
	created_at {{ts}} NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles (published_at);
CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles (created_at);
CREATE INDEX IF NOT EXISTS idx_articles_source_name ON articles (source_name);
CREATE TABLE IF NOT EXISTS article_analysis (
	id TEXT PRIMARY KEY,
	article_id TEXT NOT NULL UNIQUE REFERENCES articles (id) ON DELETE CASCADE,
	political_bias VARCHAR(20),
	bias_confidence {{float}},
	tone VARCHAR(20),
	tone_confidence {{float}},
	summary TEXT,
	analyzed_at {{ts}} NOT NULL
);
CREATE TABLE IF NOT EXISTS entities (
	id TEXT PRIMARY KEY,
	article_id TEXT NOT NULL REFERENCES articles (id) ON DELETE CASCADE,
	entity_type VARCHAR(50) NOT NULL,
	entity_value VARCHAR(500) NOT NULL,
	relevance {{float}} NOT NULL DEFAULT 1.0
);
CREATE INDEX IF NOT EXISTS idx_entities_article_id ON entities (article_id);
CREATE INDEX IF NOT EXISTS idx_entities_type_value ON entities (entity_type, entity_value)
`

// schema 按方言生成建表语句，逐条执行
func schema(d Dialect) []string {
	ts, float := "DATETIME", "REAL"
	if d == Postgres {
		ts, float = "TIMESTAMPTZ", "DOUBLE PRECISION"
	}
	ddl := strings.NewReplacer("{{ts}}", ts, "{{float}}", float).Replace(schemaTemplate)

	var stmts []string
	for _, stmt := range strings.Split(ddl, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
