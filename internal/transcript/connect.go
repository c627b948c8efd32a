package transcript

import (
	"fmt"
	"net"
	"strconv"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// ConnectOpts selects and addresses the transcript database.
type ConnectOpts struct {
	Driver   string // DriverSQLite or DriverMySQL
	Path     string // sqlite file path, or ":memory:"
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// DSN builds a MySQL DSN with parseTime enabled.
func DSN(host string, port int, database, user, password string) string {
	cfg := gomysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.DBName = database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// Connect opens the transcript database and migrates the schema.
func Connect(opts ConnectOpts) (*gorm.DB, error) {
	var dialector gorm.Dialector
	var target string
	switch opts.Driver {
	case DriverSQLite, "":
		if opts.Path == "" {
			return nil, fmt.Errorf("transcript: sqlite path is required")
		}
		dialector = sqlite.Open(opts.Path)
		target = opts.Path
	case DriverMySQL:
		dialector = mysql.Open(DSN(opts.Host, opts.Port, opts.Database, opts.User, opts.Password))
		target = fmt.Sprintf("%s:%d/%s", opts.Host, opts.Port, opts.Database)
	default:
		return nil, fmt.Errorf("transcript: unknown driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("transcript: connect to %s: %w", target, err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the transcript tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Exchange{}); err != nil {
		return fmt.Errorf("transcript: migrate: %w", err)
	}
	return nil
}
