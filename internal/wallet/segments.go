package wallet

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/GowthamR7/wallet-frontend/internal/api"
)

// Segment identifies one of the five balances on an account. The value is
// the stable wire key the transfer endpoint expects, not the display name.
type Segment string

const (
	Main         Segment = "balance"
	AIAvatar     Segment = "ai_avatar_balance"
	BroadcastBot Segment = "broadcast_bot_balance"
	DataScrap    Segment = "data_scrap_balance"
	MetaAd       Segment = "meta_ad_balance"
)

// Segments lists all wallet segments in display order.
func Segments() []Segment {
	return []Segment{Main, AIAvatar, BroadcastBot, DataScrap, MetaAd}
}

// shortNames maps the user-facing aliases accepted on the command line to
// segment keys.
var shortNames = map[string]Segment{
	"main":          Main,
	"ai_avatar":     AIAvatar,
	"broadcast_bot": BroadcastBot,
	"data_scrap":    DataScrap,
	"meta_ad":       MetaAd,
}

// Parse resolves a segment from either its wire key or its short alias.
func Parse(value string) (Segment, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if s, ok := shortNames[normalized]; ok {
		return s, nil
	}
	s := Segment(normalized)
	if s.Valid() {
		return s, nil
	}
	return "", fmt.Errorf("unknown wallet segment %q", value)
}

// Valid reports whether s is one of the five known segments.
func (s Segment) Valid() bool {
	switch s {
	case Main, AIAvatar, BroadcastBot, DataScrap, MetaAd:
		return true
	}
	return false
}

// DisplayName returns the human-readable name of the segment.
func (s Segment) DisplayName() string {
	switch s {
	case Main:
		return "Main Wallet"
	case AIAvatar:
		return "AI Avatar"
	case BroadcastBot:
		return "Broadcast Bot"
	case DataScrap:
		return "Data Scrap"
	case MetaAd:
		return "Meta Ad"
	}
	return string(s)
}

// BalanceOf reads the balance held by segment s on the given account.
func BalanceOf(account api.Account, s Segment) decimal.Decimal {
	switch s {
	case AIAvatar:
		return account.AIAvatarBalance
	case BroadcastBot:
		return account.BroadcastBotBalance
	case DataScrap:
		return account.DataScrapBalance
	case MetaAd:
		return account.MetaAdBalance
	default:
		return account.Balance
	}
}
