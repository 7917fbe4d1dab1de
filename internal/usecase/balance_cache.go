package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/v4vapp/bridge/internal/domain"
)

// balanceCacheKey derives the generation-scoped cache key of spec §4.7:
// bal:v{gen}:{hash}, where hash identifies the (account, asOf) pair. Bumping
// the generation counter on every Post makes every previously cached key
// unreachable without an explicit per-key delete.
func balanceCacheKey(gen int64, account domain.AccountTuple, asOf *time.Time) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s", account.Type, account.Name, account.Sub)
	if asOf != nil {
		fmt.Fprintf(h, "|%s", asOf.UTC().Truncate(time.Minute).Format(time.RFC3339))
	}
	return fmt.Sprintf("bal:v%d:%s", gen, hex.EncodeToString(h.Sum(nil))[:16])
}

// encodeCachedBalance serializes details for the cache. InProgressMsats is
// never cached (spec §4.7: "always recomputed freshly even on cache hit"),
// so it is zeroed before encoding rather than persisting a stale value.
func encodeCachedBalance(details *domain.LedgerAccountDetails) ([]byte, error) {
	cacheable := *details
	cacheable.InProgressMsats = 0
	return json.Marshal(&cacheable)
}

func decodeCachedBalance(raw []byte) (*domain.LedgerAccountDetails, error) {
	var details domain.LedgerAccountDetails
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, err
	}
	return &details, nil
}
