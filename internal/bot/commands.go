package bot

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// minCredentialLen is a sanity floor for /connect arguments; real bot
// tokens are far longer.
const minCredentialLen = 30

var errBadArgs = errors.New("bot: bad arguments")

func parseChatID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// parsePostArgs parses "<chat_id> <template_idx>".
func parsePostArgs(args []string) (chatID int64, idx int, err error) {
	if len(args) < 2 {
		return 0, 0, errBadArgs
	}
	chatID, err = parseChatID(args[0])
	if err != nil {
		return 0, 0, errBadArgs
	}
	idx, err = strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, errBadArgs
	}
	return chatID, idx, nil
}

// parseScheduleArgs parses "<chat_id> <template_idx> <seconds>".
func parseScheduleArgs(args []string) (chatID int64, idx int, delay time.Duration, err error) {
	if len(args) < 3 {
		return 0, 0, 0, errBadArgs
	}
	chatID, idx, err = parsePostArgs(args[:2])
	if err != nil {
		return 0, 0, 0, err
	}
	secs, err := strconv.Atoi(args[2])
	if err != nil || secs < 0 {
		return 0, 0, 0, errBadArgs
	}
	return chatID, idx, time.Duration(secs) * time.Second, nil
}

// parseApprove parses "/approve <tenant_id> <duration>", where duration is
// "7_days" or "7d".
func parseApprove(text string) (tenantID int64, duration time.Duration, ok bool) {
	parts := strings.Fields(text)
	if len(parts) < 3 {
		return 0, 0, false
	}
	tenantID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}

	span := strings.ToLower(parts[2])
	var days int
	switch {
	case strings.HasSuffix(span, "_days"):
		days, err = strconv.Atoi(strings.TrimSuffix(span, "_days"))
	case strings.HasSuffix(span, "d"):
		days, err = strconv.Atoi(strings.TrimSuffix(span, "d"))
	default:
		return 0, 0, false
	}
	if err != nil || days <= 0 {
		return 0, 0, false
	}
	return tenantID, time.Duration(days) * 24 * time.Hour, true
}
