package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/listerineh/flight-emissions/internal/phases"
	"github.com/listerineh/flight-emissions/internal/pipeline"
	"github.com/listerineh/flight-emissions/internal/trajectory"
	"github.com/listerineh/flight-emissions/pkg/logger"
	_ "modernc.org/sqlite"
)

// FlightStorage is a SQLite-based storage for processed flight records
type FlightStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewFlightStorage creates a new SQLite-based flight storage
func NewFlightStorage(dbPath string, log *logger.Logger) (*FlightStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Set pragmas for better performance and concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initDatabase(db, storageLogger); err != nil {
		db.Close()
		return nil, err
	}

	return &FlightStorage{
		db:     db,
		logger: storageLogger,
	}, nil
}

// Close closes the database connection
func (s *FlightStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetDB returns the database connection
func (s *FlightStorage) GetDB() *sql.DB {
	return s.db
}

// initDatabase initializes the database schema
func initDatabase(db *sql.DB, log *logger.Logger) error {
	log.Info("Initializing database schema")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS flights (
			fr24_id TEXT PRIMARY KEY,
			flight TEXT,
			callsign TEXT,
			aircraft_model TEXT,
			aircraft_reg TEXT,
			departure_icao TEXT,
			arrival_icao TEXT,
			departure_time_utc TEXT,
			arrival_time_utc TEXT,
			flight_duration_s INTEGER,
			distance_km REAL,
			circle_distance_km REAL,
			duration_takeoff_s INTEGER,
			duration_climb_s INTEGER,
			duration_cruise_s INTEGER,
			duration_descent_s INTEGER,
			duration_landing_s INTEGER,
			fuel_takeoff_kg REAL,
			fuel_climb_kg REAL,
			fuel_cruise_kg REAL,
			fuel_descent_kg REAL,
			fuel_landing_kg REAL,
			co2_takeoff_kg REAL,
			co2_climb_kg REAL,
			co2_cruise_kg REAL,
			co2_descent_kg REAL,
			co2_landing_kg REAL,
			co2_total_kg REAL,
			co2_per_passenger_kg REAL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create flights table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS flight_positions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			fr24_id TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			latitude REAL,
			longitude REAL,
			altitude REAL,
			ground_speed REAL,
			vertical_rate REAL,
			FOREIGN KEY (fr24_id) REFERENCES flights(fr24_id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create flight_positions table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_flight_positions_fr24_id_timestamp ON flight_positions(fr24_id, timestamp)`)
	if err != nil {
		return fmt.Errorf("failed to create index on flight_positions: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_flights_callsign ON flights(callsign)`)
	if err != nil {
		return fmt.Errorf("failed to create index on flights.callsign: %w", err)
	}

	log.Info("Database schema initialized successfully")
	return nil
}

// SaveProcessedFlight upserts one processed flight record and replaces its
// position rows. Re-processing the same flight id never creates duplicates.
func (s *FlightStorage) SaveProcessedFlight(ctx context.Context, flight *pipeline.ProcessedFlight) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO flights (
			fr24_id, flight, callsign, aircraft_model, aircraft_reg,
			departure_icao, arrival_icao, departure_time_utc, arrival_time_utc,
			flight_duration_s, distance_km, circle_distance_km,
			duration_takeoff_s, duration_climb_s, duration_cruise_s, duration_descent_s, duration_landing_s,
			fuel_takeoff_kg, fuel_climb_kg, fuel_cruise_kg, fuel_descent_kg, fuel_landing_kg,
			co2_takeoff_kg, co2_climb_kg, co2_cruise_kg, co2_descent_kg, co2_landing_kg,
			co2_total_kg, co2_per_passenger_kg
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (fr24_id) DO UPDATE SET
			flight = excluded.flight,
			callsign = excluded.callsign,
			aircraft_model = excluded.aircraft_model,
			aircraft_reg = excluded.aircraft_reg,
			departure_icao = excluded.departure_icao,
			arrival_icao = excluded.arrival_icao,
			departure_time_utc = excluded.departure_time_utc,
			arrival_time_utc = excluded.arrival_time_utc,
			flight_duration_s = excluded.flight_duration_s,
			distance_km = excluded.distance_km,
			circle_distance_km = excluded.circle_distance_km,
			duration_takeoff_s = excluded.duration_takeoff_s,
			duration_climb_s = excluded.duration_climb_s,
			duration_cruise_s = excluded.duration_cruise_s,
			duration_descent_s = excluded.duration_descent_s,
			duration_landing_s = excluded.duration_landing_s,
			fuel_takeoff_kg = excluded.fuel_takeoff_kg,
			fuel_climb_kg = excluded.fuel_climb_kg,
			fuel_cruise_kg = excluded.fuel_cruise_kg,
			fuel_descent_kg = excluded.fuel_descent_kg,
			fuel_landing_kg = excluded.fuel_landing_kg,
			co2_takeoff_kg = excluded.co2_takeoff_kg,
			co2_climb_kg = excluded.co2_climb_kg,
			co2_cruise_kg = excluded.co2_cruise_kg,
			co2_descent_kg = excluded.co2_descent_kg,
			co2_landing_kg = excluded.co2_landing_kg,
			co2_total_kg = excluded.co2_total_kg,
			co2_per_passenger_kg = excluded.co2_per_passenger_kg,
			updated_at = CURRENT_TIMESTAMP
	`,
		flight.FlightID, flight.Flight, flight.Callsign, flight.AircraftModel, flight.AircraftReg,
		flight.DepartureICAO, flight.ArrivalICAO, flight.DepartureTimeUTC, flight.ArrivalTimeUTC,
		flight.FlightDurationS, flight.DistanceKm, flight.GreatCircleKm,
		flight.PhaseDurationsS.Takeoff, flight.PhaseDurationsS.Climb, flight.PhaseDurationsS.Cruise,
		flight.PhaseDurationsS.Descent, flight.PhaseDurationsS.Landing,
		flight.FuelEstimatedKg[phases.PhaseTakeoff], flight.FuelEstimatedKg[phases.PhaseClimb],
		flight.FuelEstimatedKg[phases.PhaseCruise], flight.FuelEstimatedKg[phases.PhaseDescent],
		flight.FuelEstimatedKg[phases.PhaseLanding],
		flight.CO2EstimatedKg[phases.PhaseTakeoff], flight.CO2EstimatedKg[phases.PhaseClimb],
		flight.CO2EstimatedKg[phases.PhaseCruise], flight.CO2EstimatedKg[phases.PhaseDescent],
		flight.CO2EstimatedKg[phases.PhaseLanding],
		flight.CO2TotalKg, flight.CO2PerPassengerKg,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert flight %s: %w", flight.FlightID, err)
	}

	// Replace positions wholesale so re-processing cannot duplicate rows
	if _, err := tx.ExecContext(ctx, `DELETE FROM flight_positions WHERE fr24_id = ?`, flight.FlightID); err != nil {
		return fmt.Errorf("failed to clear positions for flight %s: %w", flight.FlightID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO flight_positions (fr24_id, timestamp, latitude, longitude, altitude, ground_speed, vertical_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare position insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range flight.Points {
		if _, err := stmt.ExecContext(ctx, flight.FlightID, p.Timestamp, p.Latitude, p.Longitude, p.Altitude, p.GroundSpeed, p.VerticalRate); err != nil {
			return fmt.Errorf("failed to insert position for flight %s: %w", flight.FlightID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit flight %s: %w", flight.FlightID, err)
	}

	s.logger.Debug("Flight persisted",
		logger.String("flight_id", flight.FlightID),
		logger.Int("positions", len(flight.Points)),
	)

	return nil
}

const flightColumns = `
	fr24_id, flight, callsign, aircraft_model, aircraft_reg,
	departure_icao, arrival_icao, departure_time_utc, arrival_time_utc,
	flight_duration_s, distance_km, circle_distance_km,
	duration_takeoff_s, duration_climb_s, duration_cruise_s, duration_descent_s, duration_landing_s,
	fuel_takeoff_kg, fuel_climb_kg, fuel_cruise_kg, fuel_descent_kg, fuel_landing_kg,
	co2_takeoff_kg, co2_climb_kg, co2_cruise_kg, co2_descent_kg, co2_landing_kg,
	co2_total_kg, co2_per_passenger_kg`

// ListFlights returns stored flight records without their point sequences,
// newest first
func (s *FlightStorage) ListFlights(ctx context.Context, limit, offset int) ([]*pipeline.ProcessedFlight, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+flightColumns+`
		FROM flights
		ORDER BY updated_at DESC, fr24_id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query flights: %w", err)
	}
	defer rows.Close()

	var flights []*pipeline.ProcessedFlight
	for rows.Next() {
		flight, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, flight)
	}

	return flights, rows.Err()
}

// GetFlight returns one stored flight record without its point sequence
func (s *FlightStorage) GetFlight(ctx context.Context, flightID string) (*pipeline.ProcessedFlight, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+flightColumns+`
		FROM flights
		WHERE fr24_id = ?
	`, flightID)

	flight, err := scanFlight(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return flight, true, nil
}

// GetPositions returns up to limit stored positions for a flight in
// ascending timestamp order. A limit of zero or less means no limit.
func (s *FlightStorage) GetPositions(ctx context.Context, flightID string, limit int) ([]trajectory.Point, error) {
	query := `
		SELECT timestamp, latitude, longitude, altitude, ground_speed, vertical_rate
		FROM flight_positions
		WHERE fr24_id = ?
		ORDER BY timestamp`
	args := []interface{}{flightID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions for flight %s: %w", flightID, err)
	}
	defer rows.Close()

	var points []trajectory.Point
	for rows.Next() {
		var p trajectory.Point
		if err := rows.Scan(&p.Timestamp, &p.Latitude, &p.Longitude, &p.Altitude, &p.GroundSpeed, &p.VerticalRate); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		points = append(points, p)
	}

	return points, rows.Err()
}

// CountFlights returns the number of stored flight records
func (s *FlightStorage) CountFlights(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM flights`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count flights: %w", err)
	}
	return count, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanFlight reads one flights row into a record
func scanFlight(row rowScanner) (*pipeline.ProcessedFlight, error) {
	var f pipeline.ProcessedFlight
	var flight, callsign, model, reg, depICAO, arrICAO, depTime, arrTime sql.NullString
	var durationS sql.NullInt64
	var circleKm sql.NullFloat64
	fuelKg := make(map[string]float64, len(phases.Names))
	co2Kg := make(map[string]float64, len(phases.Names))
	var fuelTakeoff, fuelClimb, fuelCruise, fuelDescent, fuelLanding float64
	var co2Takeoff, co2Climb, co2Cruise, co2Descent, co2Landing float64

	err := row.Scan(
		&f.FlightID, &flight, &callsign, &model, &reg,
		&depICAO, &arrICAO, &depTime, &arrTime,
		&durationS, &f.DistanceKm, &circleKm,
		&f.PhaseDurationsS.Takeoff, &f.PhaseDurationsS.Climb, &f.PhaseDurationsS.Cruise,
		&f.PhaseDurationsS.Descent, &f.PhaseDurationsS.Landing,
		&fuelTakeoff, &fuelClimb, &fuelCruise, &fuelDescent, &fuelLanding,
		&co2Takeoff, &co2Climb, &co2Cruise, &co2Descent, &co2Landing,
		&f.CO2TotalKg, &f.CO2PerPassengerKg,
	)
	if err != nil {
		return nil, err
	}

	f.Flight = flight.String
	f.Callsign = callsign.String
	f.AircraftModel = model.String
	f.AircraftReg = reg.String
	f.DepartureICAO = depICAO.String
	f.ArrivalICAO = arrICAO.String
	f.DepartureTimeUTC = depTime.String
	f.ArrivalTimeUTC = arrTime.String
	if durationS.Valid {
		f.FlightDurationS = &durationS.Int64
	}
	if circleKm.Valid {
		f.GreatCircleKm = &circleKm.Float64
	}

	fuelKg[phases.PhaseTakeoff] = fuelTakeoff
	fuelKg[phases.PhaseClimb] = fuelClimb
	fuelKg[phases.PhaseCruise] = fuelCruise
	fuelKg[phases.PhaseDescent] = fuelDescent
	fuelKg[phases.PhaseLanding] = fuelLanding
	co2Kg[phases.PhaseTakeoff] = co2Takeoff
	co2Kg[phases.PhaseClimb] = co2Climb
	co2Kg[phases.PhaseCruise] = co2Cruise
	co2Kg[phases.PhaseDescent] = co2Descent
	co2Kg[phases.PhaseLanding] = co2Landing
	f.FuelEstimatedKg = fuelKg
	f.CO2EstimatedKg = co2Kg

	return &f, nil
}
