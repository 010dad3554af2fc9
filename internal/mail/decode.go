package mail

import (
	"sort"
	"strings"

	"github.com/emersion/go-imap/v2"
)

// normalizeFlags converts protocol flag tokens into lowercase names
// without the leading backslash, e.g. `\Seen` -> "seen". Both the fetch
// path and callers comparing against flag names go through this single
// decoder.
func normalizeFlags(flags []imap.Flag) []string {
	if len(flags) == 0 {
		return nil
	}
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		name := strings.TrimPrefix(string(f), `\`)
		if name == "" {
			continue
		}
		out = append(out, strings.ToLower(name))
	}
	return out
}

// folderNames extracts mailbox names from LIST response data, sorted
// lexicographically for deterministic display and comparison.
func folderNames(listings []*imap.ListData) []string {
	var names []string
	for _, l := range listings {
		if l == nil || l.Mailbox == "" {
			continue
		}
		names = append(names, l.Mailbox)
	}
	sort.Strings(names)
	return names
}

// selectRecent removes excluded UIDs from candidates, then keeps the
// maxCount numerically highest UIDs in ascending order. UIDs increase by
// arrival order within a mailbox, so the highest UIDs are the most recent
// messages. Exclusion runs before truncation: the window approximates
// "the N most recent new messages", not "the new messages among the N
// most recent".
func selectRecent(candidates []imap.UID, excluded map[uint32]struct{}, maxCount int) []imap.UID {
	kept := make([]imap.UID, 0, len(candidates))
	for _, uid := range candidates {
		if _, skip := excluded[uint32(uid)]; skip {
			continue
		}
		kept = append(kept, uid)
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i] < kept[j] })

	if maxCount > 0 && len(kept) > maxCount {
		kept = kept[len(kept)-maxCount:]
	}
	return kept
}
