package domain

import "time"

// Driver represents the type of SQL engine a connection speaks.
type Driver string

const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// DefaultPort returns the conventional port for the driver (0 for sqlite,
// which connects to a file path instead of a network endpoint).
func (d Driver) DefaultPort() int {
	switch d {
	case DriverPostgres:
		return 5432
	case DriverMySQL:
		return 3306
	default:
		return 0
	}
}

// ConnectionParams holds everything needed to reach a database. It is a
// value type: resolving never mutates the caller's copy, it returns a new
// instance with host/port rewritten to the tunnel endpoint.
type ConnectionParams struct {
	Driver   Driver `json:"driver"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"` // db name, or file path for sqlite
	SSLMode  string `json:"sslMode"`

	// SSH tunnel settings. SSHProfileID references a saved SSHProfile;
	// the inline fields are the legacy form and the post-expansion form.
	SSHEnabled       bool   `json:"sshEnabled"`
	SSHProfileID     string `json:"sshProfileId"`
	SSHHost          string `json:"sshHost"`
	SSHPort          int    `json:"sshPort"`
	SSHUser          string `json:"sshUser"`
	SSHPassword      string `json:"sshPassword"`
	SSHKeyFile       string `json:"sshKeyFile"`
	SSHKeyPassphrase string `json:"sshKeyPassphrase"`
}

// SavedConnection is a persisted, named ConnectionParams.
// Secrets (DB password, SSH password/passphrase) live in the SecretStore,
// never in the persisted params.
type SavedConnection struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Params    ConnectionParams `json:"params"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// SSHAuthKind distinguishes password and key-file authentication.
type SSHAuthKind string

const (
	SSHAuthPassword SSHAuthKind = "password"
	SSHAuthKey      SSHAuthKind = "ssh_key"
)

// SSHProfile is a persisted SSH identity, referenced by connections.
type SSHProfile struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Host          string      `json:"host"`
	Port          int         `json:"port"`
	User          string      `json:"user"`
	AuthKind      SSHAuthKind `json:"authKind"`
	Password      string      `json:"password,omitempty"` // loaded from SecretStore
	KeyFile       string      `json:"keyFile,omitempty"`
	KeyPassphrase string      `json:"keyPassphrase,omitempty"` // loaded from SecretStore
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// Pagination describes the page window a QueryResult covers.
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	TotalRows int64 `json:"totalRows"`
}

// QueryResult is the immutable outcome of one query execution.
// Row values are heterogeneous: numbers, strings, bools, or nil, already
// decoded per dialect and safe to serialize as JSON.
type QueryResult struct {
	Columns      []string    `json:"columns"`
	Rows         [][]any     `json:"rows"`
	AffectedRows int64       `json:"affectedRows"`
	Truncated    bool        `json:"truncated"`
	Pagination   *Pagination `json:"pagination,omitempty"`
}

// TableInfo names a table in the connected database.
type TableInfo struct {
	Name string `json:"name"`
}

// ForeignKey describes one column of a foreign key constraint.
type ForeignKey struct {
	Name       string `json:"name"`
	ColumnName string `json:"columnName"`
	RefTable   string `json:"refTable"`
	RefColumn  string `json:"refColumn"`
	OnUpdate   string `json:"onUpdate,omitempty"`
	OnDelete   string `json:"onDelete,omitempty"`
}

// IndexInfo describes one column of an index. Multi-column indexes emit
// one entry per column, ordered by SeqInIndex.
type IndexInfo struct {
	Name       string `json:"name"`
	ColumnName string `json:"columnName"`
	IsUnique   bool   `json:"isUnique"`
	IsPrimary  bool   `json:"isPrimary"`
	SeqInIndex int    `json:"seqInIndex"`
}

// TableColumn describes one column of a table.
type TableColumn struct {
	Name            string `json:"name"`
	DataType        string `json:"dataType"`
	IsPK            bool   `json:"isPk"`
	IsNullable      bool   `json:"isNullable"`
	IsAutoIncrement bool   `json:"isAutoIncrement"`
}
