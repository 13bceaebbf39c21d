package catalog

// bootstrapStatements is the catalog schema created in a fresh database.
// The format is fixed; readers of existing files depend on it.
var bootstrapStatements = []string{
	`CREATE TABLE METADATA_TYPE (
		OID  INTEGER PRIMARY KEY,
		MODE INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE METADATA_TABLE (
		TYPE_OID   INTEGER PRIMARY KEY REFERENCES METADATA_TYPE (OID)
			ON UPDATE CASCADE ON DELETE CASCADE,
		PARENT_OID INTEGER REFERENCES METADATA_TABLE (TYPE_OID)
			ON UPDATE CASCADE ON DELETE SET NULL,
		NAME       TEXT NOT NULL DEFAULT 'UnnamedTable',
		SURROGATE_KEY_COLUMN_OID INTEGER,
		TRASH      INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE METADATA_TABLE_INHERITANCE (
		INHERITOR_TABLE_OID INTEGER NOT NULL,
		MASTER_TABLE_OID    INTEGER NOT NULL,
		TRASH               INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (INHERITOR_TABLE_OID, MASTER_TABLE_OID)
	)`,
	`CREATE TABLE METADATA_TABLE_COLUMN (
		OID             INTEGER PRIMARY KEY,
		TABLE_OID       INTEGER NOT NULL REFERENCES METADATA_TABLE (TYPE_OID)
			ON UPDATE CASCADE ON DELETE CASCADE,
		NAME            TEXT NOT NULL DEFAULT 'Column',
		TYPE_OID        INTEGER NOT NULL DEFAULT 8 REFERENCES METADATA_TYPE (OID)
			ON UPDATE CASCADE ON DELETE SET DEFAULT,
		COLUMN_WIDTH    INTEGER NOT NULL DEFAULT 100,
		COLUMN_ORDERING INTEGER NOT NULL DEFAULT 0,
		COLUMN_STYLE    TEXT NOT NULL DEFAULT '',
		IS_NULLABLE     INTEGER NOT NULL DEFAULT 1,
		IS_UNIQUE       INTEGER NOT NULL DEFAULT 0,
		IS_PRIMARY_KEY  INTEGER NOT NULL DEFAULT 0,
		TRASH           INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE METADATA_RPT (
		OID   INTEGER PRIMARY KEY,
		TRASH INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE METADATA_RPT__REPORT (
		RPT_OID        INTEGER PRIMARY KEY REFERENCES METADATA_RPT (OID)
			ON UPDATE CASCADE ON DELETE CASCADE,
		BASE_TABLE_OID INTEGER NOT NULL,
		NAME           TEXT NOT NULL DEFAULT 'UnnamedReport'
	)`,
	`CREATE TABLE METADATA_RPT_COLUMN (
		OID             INTEGER PRIMARY KEY,
		RPT_OID         INTEGER NOT NULL REFERENCES METADATA_RPT (OID)
			ON UPDATE CASCADE ON DELETE CASCADE,
		NAME            TEXT NOT NULL DEFAULT 'Column',
		COLUMN_ORDERING INTEGER NOT NULL DEFAULT 0,
		COLUMN_STYLE    TEXT NOT NULL DEFAULT '',
		TRASH           INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE METADATA_RPT_COLUMN__FORMULA (
		RPT_COLUMN_OID INTEGER PRIMARY KEY,
		FORMULA        TEXT NOT NULL
	)`,
	`CREATE TABLE METADATA_RPT_COLUMN__SUBREPORT (
		RPT_COLUMN_OID    INTEGER PRIMARY KEY,
		RPT_OID           INTEGER NOT NULL,
		RPT_PARAMETER_OID INTEGER NOT NULL
	)`,
	// seeded primitive types, MODE 0:
	// 0 Null, 1 Boolean, 2 Integer, 3 Number, 4 Date, 5 Timestamp,
	// 6 Text, 7 JSON, 8 Blob, 9 ImageBlob
	`INSERT INTO METADATA_TYPE (OID, MODE) VALUES
		(0, 0), (1, 0), (2, 0), (3, 0), (4, 0),
		(5, 0), (6, 0), (7, 0), (8, 0), (9, 0)`,
}

// Bootstrap creates the catalog tables and seeds the primitive types.
func Bootstrap(e Execer) error {
	for _, stmt := range bootstrapStatements {
		if _, err := e.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
