package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ShareKeyStrategy string

const (
	StrategyDateBased ShareKeyStrategy = "date_based"
	StrategyFlat      ShareKeyStrategy = "flat"
)

// ShareKeyGenerator produces object keys for share snapshots.
type ShareKeyGenerator struct {
	strategy ShareKeyStrategy
	prefix   string
}

func NewShareKeyGenerator(strategy ShareKeyStrategy, prefix string) *ShareKeyGenerator {
	return &ShareKeyGenerator{
		strategy: strategy,
		prefix:   prefix,
	}
}

func (skg *ShareKeyGenerator) GenerateKey(convoID string) string {
	uid := uuid.New().String()
	switch skg.strategy {
	case StrategyDateBased:
		now := time.Now().UTC()
		return fmt.Sprintf("%s/%s/%s_%s.json", skg.prefix, now.Format("2006/01"), convoID, uid)
	default:
		return fmt.Sprintf("%s/%s_%s.json", skg.prefix, convoID, uid)
	}
}
