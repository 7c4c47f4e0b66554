package bot

import (
	"fmt"
	"time"
)

func startText(priceWeek int) string {
	return fmt.Sprintf(
		"Welcome to AdPilot.\n\n"+
			"Connect your own bot account and run safe, allow-listed automation "+
			"in the chats you manage.\n\n"+
			"Premium: %d/week\n"+
			"Anti-spam policy: automation only runs in allow-listed chats.\n\n"+
			"Commands: /help", priceWeek)
}

func helpText() string {
	return "Automation commands\n\n" +
		"1) Connect your credential:\n" +
		"• /connect <BOT_TOKEN>\n\n" +
		"2) Allow-list a chat:\n" +
		"• /allow -100xxxxxxxxxx\n" +
		"• /allowlist\n\n" +
		"3) Templates:\n" +
		"• /settpl This is template #1\n" +
		"• /settpl image:/srv/assets/promo.jpg\\nCaption here\n" +
		"• /cleartpl\n\n" +
		"4) Post now (premium required):\n" +
		"• /post -100xxxxxxxxxx 0\n\n" +
		"5) Schedule (premium required):\n" +
		"• /schedule -100xxxxxxxxxx 0 3600\n" +
		"• /schedulecron -100xxxxxxxxxx 0 0 9 * * *\n\n" +
		"6) Apply config changes:\n" +
		"• /restart"
}

func pricingText(priceWeek int) string {
	return fmt.Sprintf(
		"Premium pricing\n\n"+
			"• %d per week\n\n"+
			"Premium unlocks /post, /schedule, and quiet-period auto-posting in "+
			"your allow-listed chats.\n\n"+
			"Buy with /buy.", priceWeek)
}

func buyText() string {
	return "Buy premium (manual verification)\n\n" +
		"1) Make the payment\n" +
		"2) Send the screenshot here\n" +
		"3) The admin verifies and activates premium\n\n" +
		"Once verified, /dashboard shows your premium status."
}

func loginText() string {
	return "Connect your account\n\n" +
		"For safety we never collect your login codes. Create a bot credential " +
		"for the account you want to automate, then send it here:\n\n" +
		"/connect <BOT_TOKEN>\n\n" +
		"Never share the token with anyone else."
}

func dashboardText(tenantID int64, username string, premiumOK bool, premiumUntil time.Time, hasCred bool, allowCount int) string {
	status := func(ok bool, yes, no string) string {
		if ok {
			return yes
		}
		return no
	}
	until := "N/A"
	if !premiumUntil.IsZero() {
		until = premiumUntil.Format("2006-01-02 15:04")
	}
	return fmt.Sprintf(
		"Your dashboard\n\n"+
			"• Tenant: %d @%s\n"+
			"• Credential: %s\n"+
			"• Allow-listed chats: %d\n"+
			"• Premium: %s\n"+
			"• Premium until: %s\n\n"+
			"Commands: /allow, /post, /schedule, /help",
		tenantID, username,
		status(hasCred, "connected", "not connected"),
		allowCount,
		status(premiumOK, "active", "inactive"),
		until)
}

func approvedText(tenantID int64, until time.Time) string {
	return fmt.Sprintf("Approved tenant %d until %s", tenantID, until.Format("2006-01-02 15:04"))
}

func paymentCaption(tenantID int64, username string) string {
	return fmt.Sprintf("Payment request\nTenant: %d @%s\nApprove: /approve %d 7_days", tenantID, username, tenantID)
}
