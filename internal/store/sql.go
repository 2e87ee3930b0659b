package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/metal-toolbox/bootline/internal/metrics"
	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	defaultDriver = "sqlite"
	memoryDSN     = ":memory:"

	// busyTimeout is how long a connection waits on a locked database, in milliseconds
	busyTimeout = 5000
)

// SQLOptions configures the sql inventory store class.
type SQLOptions struct {
	// Driver is the database/sql driver name.
	Driver string `mapstructure:"driver"`
	// DSN is the driver data source name, Engine is accepted as an alias
	// in the sqlite:///path form.
	DSN          string `mapstructure:"dsn"`
	Engine       string `mapstructure:"engine"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// SQL is the database/sql backed inventory store.
type SQL struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewSQLStore opens the database and creates the inventory schema.
//
// The returned store holds the process wide connection pool, callers should
// invoke Close on shutdown.
func NewSQLStore(ctx context.Context, opts SQLOptions, logger *logrus.Logger) (*SQL, error) {
	driver := opts.Driver
	if driver == "" {
		driver = defaultDriver
	}

	dsn, err := opts.dataSourceName()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(ErrStoreConfig, err.Error())
	}

	switch {
	// every connection to an in-memory sqlite database gets its own database
	case strings.HasPrefix(dsn, memoryDSN):
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	case opts.MaxOpenConns > 0:
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	s := &SQL{db: db, logger: logger}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.WithFields(logrus.Fields{"driver": driver}).Debug("inventory store opened")

	return s, nil
}

func (o SQLOptions) dataSourceName() (string, error) {
	dsn := o.DSN
	if dsn == "" {
		dsn = o.Engine
	}

	if dsn == "" {
		return "", errors.Wrap(ErrStoreConfig, "expected a dsn or engine parameter")
	}

	// sqlite:///path/to/file.db, sqlite:/// and sqlite:// denote a file or in-memory database
	if strings.HasPrefix(dsn, "sqlite://") {
		dsn = strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite://"), "/")
		if dsn == "" {
			dsn = memoryDSN
		}
	}

	if o.Driver != "" && o.Driver != defaultDriver {
		return dsn, nil
	}

	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(" + strconv.Itoa(busyTimeout) + ")",
	}

	// WAL is not available to in-memory databases
	if !strings.HasPrefix(dsn, memoryDSN) {
		params = append(params, "_pragma=journal_mode(WAL)")
	}

	// transactions take the write lock on BEGIN, concurrent writers wait on
	// busy_timeout instead of failing on lock upgrade
	params = append(params, "_txlock=immediate")

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	return dsn + sep + strings.Join(params, "&"), nil
}

func (s *SQL) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS provision_zones (
			id INTEGER PRIMARY KEY,
			zone_name TEXT NOT NULL UNIQUE,
			provision_img_host TEXT NOT NULL,
			provision_mirror_host TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS servers (
			id INTEGER PRIMARY KEY,
			server_number INTEGER NOT NULL UNIQUE,
			hostname TEXT NOT NULL,
			primary_ip TEXT NOT NULL,
			primary_gw TEXT NOT NULL,
			primary_nm TEXT NOT NULL,
			primary_mac TEXT NOT NULL,
			mgmt_ip TEXT,
			mgmt_gw TEXT,
			mgmt_nm TEXT,
			dns_domain_name TEXT NOT NULL DEFAULT 'rpc.local',
			dns_server_primary TEXT NOT NULL,
			dns_server_secondary TEXT,
			dns_server_tertiary TEXT,
			ntp_server TEXT,
			bootstrapped INTEGER NOT NULL DEFAULT 0,
			boot_os TEXT NOT NULL,
			boot_os_version TEXT NOT NULL,
			boot_profile TEXT NOT NULL,
			boot_status TEXT NOT NULL,
			operational_status TEXT NOT NULL,
			provision_zone_id INTEGER,
			FOREIGN KEY(provision_zone_id) REFERENCES provision_zones(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_servers_hostname ON servers(hostname);`,
		`CREATE INDEX IF NOT EXISTS idx_servers_primary_mac ON servers(primary_mac);`,
		`CREATE TABLE IF NOT EXISTS switch_ports (
			id INTEGER PRIMARY KEY,
			switch_name TEXT NOT NULL,
			switch_port TEXT NOT NULL,
			server_number INTEGER NOT NULL,
			FOREIGN KEY(server_number) REFERENCES servers(server_number)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_switch_ports_name_port ON switch_ports(switch_name, switch_port);`,
	}

	return s.withTx(ctx, "Migrate", func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}

		return nil
	})
}

// Close closes the connection pool.
func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) registerMetric(queryKind string) {
	metrics.StoreQueryErrorCount.With(
		prometheus.Labels{
			"storeKind": KindSQL,
			"queryKind": queryKind,
		},
	).Inc()
}

// withTx runs fn in a transaction scoped to a single store call.
//
// The transaction is committed when fn returns nil and rolled back when fn
// returns an error or panics, the connection is returned to the pool on every path.
func (s *SQL) withTx(ctx context.Context, queryKind string, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.registerMetric(queryKind)
		return errors.Wrap(ErrQuery, queryKind+": "+err.Error())
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}

		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.WithError(rbErr).WithField("query", queryKind).Warn("rollback failed")
			}

			return
		}

		if cErr := tx.Commit(); cErr != nil {
			s.registerMetric(queryKind)
			err = errors.Wrap(ErrQuery, queryKind+" commit: "+cErr.Error())
		}
	}()

	return fn(tx)
}

// queryError wraps driver errors, sentinel errors raised inside a transaction are passed through.
func (s *SQL) queryError(queryKind string, err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{ErrDuplicateServer, ErrDuplicateZone, ErrUnknownServer, ErrUnknownZone, ErrQuery} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	s.registerMetric(queryKind)

	return errors.Wrap(ErrQuery, queryKind+": "+err.Error())
}

func (s *SQL) span(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(pkgName).Start(ctx, "SQL."+name)
}

const serverColumns = `s.server_number, s.hostname, s.primary_ip, s.primary_gw, s.primary_nm, s.primary_mac,
	s.mgmt_ip, s.mgmt_gw, s.mgmt_nm, s.dns_domain_name, s.dns_server_primary, s.dns_server_secondary,
	s.dns_server_tertiary, s.ntp_server, s.bootstrapped, s.boot_os, s.boot_os_version, s.boot_profile,
	s.boot_status, s.operational_status, z.zone_name, z.provision_img_host, z.provision_mirror_host`

const serverFrom = ` FROM servers s LEFT JOIN provision_zones z ON s.provision_zone_id = z.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanServer(row rowScanner) (*model.ServerRecord, *model.ProvisionZone, error) {
	var rec model.ServerRecord

	var mgmtIP, mgmtGW, mgmtNM, dnsSecondary, dnsTertiary, ntp sql.NullString

	var zoneName, zoneImageHost, zoneMirrorHost sql.NullString

	err := row.Scan(
		&rec.ServerNumber, &rec.Hostname, &rec.PrimaryIP, &rec.PrimaryGateway, &rec.PrimaryNetmask, &rec.PrimaryMAC,
		&mgmtIP, &mgmtGW, &mgmtNM, &rec.DNSDomain, &rec.DNSPrimary, &dnsSecondary,
		&dnsTertiary, &ntp, &rec.Bootstrapped, &rec.BootOS, &rec.BootOSVersion, &rec.BootProfile,
		&rec.BootStatus, &rec.OperationalStatus, &zoneName, &zoneImageHost, &zoneMirrorHost,
	)
	if err != nil {
		return nil, nil, err
	}

	rec.MgmtIP = mgmtIP.String
	rec.MgmtGateway = mgmtGW.String
	rec.MgmtNetmask = mgmtNM.String
	rec.DNSSecondary = dnsSecondary.String
	rec.DNSTertiary = dnsTertiary.String
	rec.NTPServer = ntp.String

	if !zoneName.Valid {
		return &rec, nil, nil
	}

	rec.ProvisionZone = zoneName.String

	return &rec, &model.ProvisionZone{
		Name:       zoneName.String,
		ImageHost:  zoneImageHost.String,
		MirrorHost: zoneMirrorHost.String,
	}, nil
}

// queryServer returns the first server matching the where clause.
func (s *SQL) queryServer(ctx context.Context, queryKind, where string, args ...any) (server *model.ServerRecord, zone *model.ProvisionZone, err error) {
	err = s.withTx(ctx, queryKind, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+serverColumns+serverFrom+` WHERE `+where+` LIMIT 1`, args...)

		server, zone, err = scanServer(row)
		if errors.Is(err, sql.ErrNoRows) {
			server, zone = nil, nil
			return nil
		}

		return err
	})

	return server, zone, s.queryError(queryKind, err)
}

// ServerByHostname returns the server with the given hostname.
func (s *SQL) ServerByHostname(ctx context.Context, hostname string) (*model.ServerRecord, error) {
	ctx, span := s.span(ctx, "ServerByHostname")
	defer span.End()

	server, _, err := s.queryServer(ctx, "ServerByHostname", `s.hostname = ?`, hostname)

	return server, err
}

// ServerByNumber returns the server and its provision zone.
func (s *SQL) ServerByNumber(ctx context.Context, number model.ServerNumber) (*model.ServerRecord, *model.ProvisionZone, error) {
	ctx, span := s.span(ctx, "ServerByNumber")
	defer span.End()

	span.SetAttributes(attribute.Int64("server_number", int64(number)))

	return s.queryServer(ctx, "ServerByNumber", `s.server_number = ?`, int64(number))
}

// ServerByMAC returns the server with the given primary MAC address.
func (s *SQL) ServerByMAC(ctx context.Context, mac string) (*model.ServerRecord, error) {
	ctx, span := s.span(ctx, "ServerByMAC")
	defer span.End()

	server, _, err := s.queryServer(ctx, "ServerByMAC", `s.primary_mac = ?`, mac)

	return server, err
}

// ServerBySwitch returns the server bound to the switch name and port.
func (s *SQL) ServerBySwitch(ctx context.Context, switchName, switchPort string) (*model.ServerRecord, error) {
	ctx, span := s.span(ctx, "ServerBySwitch")
	defer span.End()

	server, _, err := s.queryServer(
		ctx,
		"ServerBySwitch",
		`s.server_number = (SELECT p.server_number FROM switch_ports p WHERE p.switch_name = ? AND p.switch_port = ? LIMIT 1)`,
		switchName,
		switchPort,
	)

	return server, err
}

// setField updates a single lifecycle column of the server.
func (s *SQL) setField(ctx context.Context, queryKind, column, field string, number model.ServerNumber, value string) (model.MutationResult, error) {
	var result model.MutationResult

	err := s.withTx(ctx, queryKind, func(tx *sql.Tx) error {
		// column is one of the fixed lifecycle column names passed by the setters
		res, err := tx.ExecContext(ctx, `UPDATE servers SET `+column+` = ? WHERE server_number = ?`, value, int64(number))
		if err != nil {
			return err
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}

		if affected == 0 {
			result = model.MutationFailure(model.ReasonDeviceNotFound)
			return nil
		}

		result = model.MutationSuccess(field, value)

		return nil
	})
	if err != nil {
		return model.MutationResult{}, s.queryError(queryKind, err)
	}

	entry := s.logger.WithFields(logrus.Fields{"serverNumber": number, column: value})
	if result.Succeeded() {
		entry.Info("server " + column + " updated")
	} else {
		entry.Info("unable to locate server to update " + column)
	}

	return result, nil
}

// SetBootStatus updates the boot status of the server.
func (s *SQL) SetBootStatus(ctx context.Context, number model.ServerNumber, status string) (model.MutationResult, error) {
	ctx, span := s.span(ctx, "SetBootStatus")
	defer span.End()

	return s.setField(ctx, "SetBootStatus", "boot_status", model.FieldBootStatus, number, status)
}

// SetBootOS updates the boot OS of the server.
func (s *SQL) SetBootOS(ctx context.Context, number model.ServerNumber, os string) (model.MutationResult, error) {
	ctx, span := s.span(ctx, "SetBootOS")
	defer span.End()

	return s.setField(ctx, "SetBootOS", "boot_os", model.FieldBootOS, number, os)
}

// SetOperationalStatus updates the operational status of the server.
func (s *SQL) SetOperationalStatus(ctx context.Context, number model.ServerNumber, status string) (model.MutationResult, error) {
	ctx, span := s.span(ctx, "SetOperationalStatus")
	defer span.End()

	return s.setField(ctx, "SetOperationalStatus", "operational_status", model.FieldOperationalStatus, number, status)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	default:
		return false
	}
}

// CreateEntry inserts a new server record.
func (s *SQL) CreateEntry(ctx context.Context, server *model.ServerRecord) error {
	ctx, span := s.span(ctx, "CreateEntry")
	defer span.End()

	if server == nil {
		return errors.Wrap(ErrQuery, "CreateEntry: nil server")
	}

	dnsDomain := server.DNSDomain
	if dnsDomain == "" {
		dnsDomain = model.DefaultDNSDomain
	}

	err := s.withTx(ctx, "CreateEntry", func(tx *sql.Tx) error {
		var zoneID sql.NullInt64

		if server.ProvisionZone != "" {
			row := tx.QueryRowContext(ctx, `SELECT id FROM provision_zones WHERE zone_name = ?`, server.ProvisionZone)
			if err := row.Scan(&zoneID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return errors.Wrap(ErrUnknownZone, server.ProvisionZone)
				}

				return err
			}
		}

		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO servers (server_number, hostname, primary_ip, primary_gw, primary_nm, primary_mac,
				mgmt_ip, mgmt_gw, mgmt_nm, dns_domain_name, dns_server_primary, dns_server_secondary,
				dns_server_tertiary, ntp_server, bootstrapped, boot_os, boot_os_version, boot_profile,
				boot_status, operational_status, provision_zone_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(server.ServerNumber), server.Hostname, server.PrimaryIP, server.PrimaryGateway, server.PrimaryNetmask, server.PrimaryMAC,
			nullString(server.MgmtIP), nullString(server.MgmtGateway), nullString(server.MgmtNetmask), dnsDomain, server.DNSPrimary, nullString(server.DNSSecondary),
			nullString(server.DNSTertiary), nullString(server.NTPServer), server.Bootstrapped, server.BootOS, server.BootOSVersion, server.BootProfile,
			server.BootStatus, server.OperationalStatus, zoneID,
		)
		if isUniqueViolation(err) {
			return errors.Wrap(ErrDuplicateServer, server.ServerNumber.String())
		}

		return err
	})

	return s.queryError("CreateEntry", err)
}

// AddSwitchBinding inserts a switch port binding for an existing server.
func (s *SQL) AddSwitchBinding(ctx context.Context, binding *model.SwitchPortBinding) error {
	ctx, span := s.span(ctx, "AddSwitchBinding")
	defer span.End()

	if binding == nil {
		return errors.Wrap(ErrQuery, "AddSwitchBinding: nil binding")
	}

	err := s.withTx(ctx, "AddSwitchBinding", func(tx *sql.Tx) error {
		var exists int

		row := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM servers WHERE server_number = ?`, int64(binding.ServerNumber))
		if err := row.Scan(&exists); err != nil {
			return err
		}

		if exists == 0 {
			return errors.Wrap(ErrUnknownServer, binding.ServerNumber.String())
		}

		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO switch_ports (switch_name, switch_port, server_number) VALUES (?, ?, ?)`,
			binding.SwitchName, binding.SwitchPort, int64(binding.ServerNumber),
		)

		return err
	})

	return s.queryError("AddSwitchBinding", err)
}

// AddProvisionZone inserts a provision zone.
func (s *SQL) AddProvisionZone(ctx context.Context, zone *model.ProvisionZone) error {
	ctx, span := s.span(ctx, "AddProvisionZone")
	defer span.End()

	if zone == nil {
		return errors.Wrap(ErrQuery, "AddProvisionZone: nil zone")
	}

	err := s.withTx(ctx, "AddProvisionZone", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO provision_zones (zone_name, provision_img_host, provision_mirror_host) VALUES (?, ?, ?)`,
			zone.Name, zone.ImageHost, zone.MirrorHost,
		)
		if isUniqueViolation(err) {
			return errors.Wrap(ErrDuplicateZone, zone.Name)
		}

		return err
	})

	return s.queryError("AddProvisionZone", err)
}
