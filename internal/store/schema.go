package store

import (
	"context"
	"fmt"
)

// InitSchema creates both collector tables if they do not exist yet. Safe
// to call on every process start.
func (s *Store) InitSchema(ctx context.Context) error {
	id := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.dialect == dialectPostgres {
		id = "id BIGSERIAL PRIMARY KEY"
	}

	estimaciones := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS estimaciones (
    %s,
    collected_at TEXT NOT NULL,
    parada_id INTEGER,
    linea TEXT,
    fech_actual TEXT,
    tiempo1 INTEGER,
    tiempo2 INTEGER,
    distancia1 INTEGER,
    distancia2 INTEGER,
    destino1 TEXT,
    destino2 TEXT,
    predicted_arrival TEXT,
    UNIQUE(parada_id, linea, fech_actual)
)`, id)

	posiciones := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS posiciones (
    %s,
    collected_at TEXT NOT NULL,
    instante TEXT NOT NULL,
    vehiculo INTEGER,
    linea INTEGER,
    lat REAL,
    lon REAL,
    velocidad INTEGER,
    estado INTEGER,
    UNIQUE(vehiculo, instante)
)`, id)

	for _, stmt := range []string{estimaciones, posiciones} {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
