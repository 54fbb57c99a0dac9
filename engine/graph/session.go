// Package graph mirrors the vehicle and engine catalogues into Neo4j as a
// Make -> VehicleModel -> YearRange -> EngineOption -> EngineSpec graph that
// the admin console browses.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Result is the part of a neo4j result set the store reads.
type Result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// Tx runs statements inside a write transaction.
type Tx interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
}

// Session is the part of a neo4j session the store uses.
type Session interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteWrite(ctx context.Context, work func(Tx) error) error
	Close(ctx context.Context) error
}

// SessionOpener hands out sessions. Tests substitute an in-memory fake.
type SessionOpener interface {
	OpenSession(ctx context.Context) Session
}

// NewDriver connects to Neo4j and verifies the connection.
func NewDriver(ctx context.Context, url, user, pass string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(url, neo4j.BasicAuth(user, pass, ""))
	if err != nil {
		return nil, fmt.Errorf("graph: driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("graph: connect %s: %w", url, err)
	}
	return driver, nil
}

// DriverOpener opens sessions on a real driver.
type DriverOpener struct {
	Driver   neo4j.DriverWithContext
	Database string // empty selects the server default
}

func (o DriverOpener) OpenSession(ctx context.Context) Session {
	return &driverSession{sess: o.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: o.Database})}
}

type driverSession struct {
	sess neo4j.SessionWithContext
}

func (s *driverSession) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	return s.sess.Run(ctx, cypher, params)
}

func (s *driverSession) ExecuteWrite(ctx context.Context, work func(Tx) error) error {
	_, err := s.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, work(managedTx{tx: tx})
	})
	return err
}

func (s *driverSession) Close(ctx context.Context) error { return s.sess.Close(ctx) }

type managedTx struct {
	tx neo4j.ManagedTransaction
}

func (t managedTx) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	return t.tx.Run(ctx, cypher, params)
}
