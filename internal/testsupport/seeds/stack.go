package seeds

import (
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/member"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/spell"
)

// MemberStackBuilder creates a full test stack for one member
// (Member -> Spell -> Contract -> visit history) in one go
type MemberStackBuilder struct {
	seeder *Seeder

	// Created entities
	member   *member.Member
	spell    *spell.Spell
	contract *member.Contract

	visitCount    int
	visitInterval time.Duration

	// Customization functions
	memberCustomizer   func(*MemberBuilder) *MemberBuilder
	spellCustomizer    func(*SpellBuilder) *SpellBuilder
	contractCustomizer func(*ContractBuilder) *ContractBuilder
}

// NewMemberStackBuilder creates a new MemberStackBuilder
func NewMemberStackBuilder(seeder *Seeder) *MemberStackBuilder {
	return &MemberStackBuilder{
		seeder:        seeder,
		visitCount:    12,
		visitInterval: 7 * 24 * time.Hour,
	}
}

// CustomizeMember allows customizing the member before creation
func (sb *MemberStackBuilder) CustomizeMember(fn func(*MemberBuilder) *MemberBuilder) *MemberStackBuilder {
	sb.memberCustomizer = fn
	return sb
}

// CustomizeSpell allows customizing the spell before creation
func (sb *MemberStackBuilder) CustomizeSpell(fn func(*SpellBuilder) *SpellBuilder) *MemberStackBuilder {
	sb.spellCustomizer = fn
	return sb
}

// CustomizeContract allows customizing the contract before creation
func (sb *MemberStackBuilder) CustomizeContract(fn func(*ContractBuilder) *ContractBuilder) *MemberStackBuilder {
	sb.contractCustomizer = fn
	return sb
}

// WithVisits sets the visit history shape
func (sb *MemberStackBuilder) WithVisits(count int, interval time.Duration) *MemberStackBuilder {
	sb.visitCount = count
	sb.visitInterval = interval
	return sb
}

// Build creates all entities and returns them
func (sb *MemberStackBuilder) Build() (*member.Member, *spell.Spell, *member.Contract, error) {
	memberBuilder := sb.seeder.Member()
	if sb.memberCustomizer != nil {
		memberBuilder = sb.memberCustomizer(memberBuilder)
	}
	m, err := memberBuilder.Insert()
	if err != nil {
		return nil, nil, nil, err
	}
	sb.member = m

	spellBuilder := sb.seeder.Spell().WithMemberID(m.ID)
	if sb.spellCustomizer != nil {
		spellBuilder = sb.spellCustomizer(spellBuilder)
	}
	sp, err := spellBuilder.Insert()
	if err != nil {
		return nil, nil, nil, err
	}
	sb.spell = sp

	contractBuilder := sb.seeder.Contract().WithMemberID(m.ID).WithSegment(sp.Segment)
	if sb.contractCustomizer != nil {
		contractBuilder = sb.contractCustomizer(contractBuilder)
	}
	ct, err := contractBuilder.Insert()
	if err != nil {
		return nil, nil, nil, err
	}
	sb.contract = ct

	if sb.visitCount > 0 {
		_, err = sb.seeder.Visit().WithMemberID(m.ID).WithBranchID(m.HomeBranchID).
			InsertSeries(sb.visitCount, sb.visitInterval)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	return m, sp, ct, nil
}
