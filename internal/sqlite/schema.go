package sqlite

// Schema DDL. Dates are stored as YYYY-MM-DD text, timestamps as RFC 3339.
const (
	createWeights = `CREATE TABLE IF NOT EXISTS weights (
    user_id TEXT NOT NULL,
    date TEXT NOT NULL,
    weight_lbs REAL NOT NULL,
    note TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (user_id, date)
);`

	createIntakes = `CREATE TABLE IF NOT EXISTS intakes (
    user_id TEXT NOT NULL,
    date TEXT NOT NULL,
    calories REAL NOT NULL,
    protein_g REAL NOT NULL DEFAULT 0,
    fat_g REAL NOT NULL DEFAULT 0,
    carbs_g REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (user_id, date)
);`

	createProfiles = `CREATE TABLE IF NOT EXISTS profiles (
    user_id TEXT PRIMARY KEY,
    sex TEXT NOT NULL,
    birth_date TEXT NOT NULL,
    height_cm REAL NOT NULL,
    activity_level TEXT NOT NULL DEFAULT '',
    goal_weight_lbs REAL NOT NULL DEFAULT 0,
    goal_rate REAL NOT NULL DEFAULT 0,
    calorie_target INTEGER NOT NULL DEFAULT 0,
    protein_per_lb REAL NOT NULL DEFAULT 0,
    fat_percent REAL NOT NULL DEFAULT 0,
    updated_at TEXT NOT NULL
);`

	createSnapshots = `CREATE TABLE IF NOT EXISTS snapshots (
    snapshot_id TEXT NOT NULL UNIQUE,
    user_id TEXT NOT NULL,
    date TEXT NOT NULL,
    formula_tdee REAL NOT NULL,
    adaptive_tdee REAL NOT NULL,
    tdee_delta REAL NOT NULL,
    average_intake_14d REAL NOT NULL,
    weight_change_14d REAL NOT NULL,
    trend_weight REAL NOT NULL,
    goal_rate REAL NOT NULL,
    actual_rate REAL NOT NULL,
    percent_deviation REAL NOT NULL,
    recommended_calories INTEGER NOT NULL,
    calorie_adjustment INTEGER NOT NULL,
    protein_g INTEGER NOT NULL,
    fat_g INTEGER NOT NULL,
    carbs_g INTEGER NOT NULL,
    phase TEXT NOT NULL,
    confidence TEXT NOT NULL,
    computed_at TEXT NOT NULL,
    PRIMARY KEY (user_id, date)
);`
)

const (
	idxWeightsDate   = `CREATE INDEX IF NOT EXISTS idx_weights_date ON weights(user_id, date DESC);`
	idxSnapshotsDate = `CREATE INDEX IF NOT EXISTS idx_snapshots_computed ON snapshots(user_id, computed_at);`
)

var schemaDDL = []string{
	createWeights,
	createIntakes,
	createProfiles,
	createSnapshots,
}

var indexDDL = []string{
	idxWeightsDate,
	idxSnapshotsDate,
}

// Column lists shared by the queries and the JSONL dump.
var (
	weightColumns   = []string{"user_id", "date", "weight_lbs", "note"}
	intakeColumns   = []string{"user_id", "date", "calories", "protein_g", "fat_g", "carbs_g"}
	profileColumns  = []string{"user_id", "sex", "birth_date", "height_cm", "activity_level", "goal_weight_lbs", "goal_rate", "calorie_target", "protein_per_lb", "fat_percent", "updated_at"}
	snapshotColumns = []string{
		"snapshot_id", "user_id", "date",
		"formula_tdee", "adaptive_tdee", "tdee_delta",
		"average_intake_14d", "weight_change_14d", "trend_weight",
		"goal_rate", "actual_rate", "percent_deviation",
		"recommended_calories", "calorie_adjustment",
		"protein_g", "fat_g", "carbs_g",
		"phase", "confidence", "computed_at",
	}
)
