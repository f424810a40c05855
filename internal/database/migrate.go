package database

import (
	"context"
	"database/sql"
)

// Schema statements applied at startup.  Each statement is idempotent
// so repeated startups and multiple concurrent instances are safe.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS seats (
		id                  BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		show_id             BIGINT UNSIGNED NOT NULL,
		section_id          BIGINT UNSIGNED NOT NULL,
		row_label           VARCHAR(8)      NOT NULL,
		seat_number         INT UNSIGNED    NOT NULL,
		status              ENUM('AVAILABLE','HELD','BOOKED') NOT NULL DEFAULT 'AVAILABLE',
		hold_reservation_id CHAR(36)        NULL,
		hold_expires_at     DATETIME        NULL,
		booking_id          CHAR(36)        NULL,
		price_cents         INT UNSIGNED    NOT NULL DEFAULT 0,
		created_at          DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at          DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_seat (show_id, section_id, row_label, seat_number),
		KEY idx_seats_hold (hold_reservation_id),
		KEY idx_seats_show_status (show_id, status)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS reservations (
		id          CHAR(36)  NOT NULL,
		show_id     BIGINT UNSIGNED NOT NULL,
		status      ENUM('PENDING','CONFIRMED','EXPIRED','CANCELLED') NOT NULL DEFAULT 'PENDING',
		payment_ref VARCHAR(255) NULL,
		created_at  DATETIME  NOT NULL,
		expires_at  DATETIME  NOT NULL,
		PRIMARY KEY (id),
		KEY idx_reservations_status_expires (status, expires_at)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS reservation_seats (
		reservation_id CHAR(36)        NOT NULL,
		seat_id        BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (reservation_id, seat_id),
		KEY idx_reservation_seats_seat (seat_id),
		CONSTRAINT fk_reservation_seats_reservation
			FOREIGN KEY (reservation_id) REFERENCES reservations (id) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id                 CHAR(36)     NOT NULL,
		reservation_id     CHAR(36)     NOT NULL,
		show_id            BIGINT UNSIGNED NOT NULL,
		customer_email     VARCHAR(255) NOT NULL,
		customer_name      VARCHAR(255) NOT NULL,
		total_amount_cents INT UNSIGNED NOT NULL,
		validation_code    VARCHAR(64)  NOT NULL,
		created_at         DATETIME     NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_bookings_reservation (reservation_id),
		UNIQUE KEY uq_bookings_validation_code (validation_code)
	) ENGINE=InnoDB`,
}

// Migrate applies the schema.  The unique key on
// bookings.reservation_id is load-bearing: it is the database-level
// guarantee that one reservation can never yield two bookings.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
