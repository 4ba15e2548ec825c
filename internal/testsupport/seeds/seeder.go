package seeds

import (
	"context"
	"database/sql"

	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"
)

// DBTX is the interface that both *sql.DB and *sql.Tx satisfy
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Seeder is the central orchestrator for creating seed data
// It provides a fluent API to build complex test scenarios
type Seeder struct {
	db  DBTX
	ctx context.Context
	log *logger.Logger
}

// New creates a new Seeder instance
func New(db DBTX) *Seeder {
	return &Seeder{
		db:  db,
		ctx: context.Background(),
		log: logger.Get().With("component", "seeds"),
	}
}

// WithContext sets the context for database operations
func (s *Seeder) WithContext(ctx context.Context) *Seeder {
	s.ctx = ctx
	return s
}

// Log returns the logger instance
func (s *Seeder) Log() *logger.Logger {
	return s.log
}

// Member starts building a Member entity
func (s *Seeder) Member() *MemberBuilder {
	return NewMemberBuilder(s.db, s.ctx)
}

// Visit starts building a Visit entity
func (s *Seeder) Visit() *VisitBuilder {
	return NewVisitBuilder(s.db, s.ctx)
}

// Contract starts building a Contract entity
func (s *Seeder) Contract() *ContractBuilder {
	return NewContractBuilder(s.db, s.ctx)
}

// Payment starts building a Payment entity
func (s *Seeder) Payment() *PaymentBuilder {
	return NewPaymentBuilder(s.db, s.ctx)
}

// Spell starts building a Spell entity with its outcome
func (s *Seeder) Spell() *SpellBuilder {
	return NewSpellBuilder(s.db, s.ctx)
}

// ActiveMember builds the full stack for one active member: registration,
// an open spell, an active contract and a regular visit history.
func (s *Seeder) ActiveMember() *MemberStackBuilder {
	return NewMemberStackBuilder(s)
}
