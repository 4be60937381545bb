package telegram

import (
	"fmt"
	"time"
)

// FormatErrorAlertMessage formats a failed background task for Telegram.
func FormatErrorAlertMessage(at time.Time, errType string, errMsg string, data string) string {
	return fmt.Sprintf(`📛 [ERROR ALERT]
%s
🔧 %s
⚠️ %s

📄 Data: %s
`, at.UTC().Format("2006-01-02 15:04 MST"), errType, errMsg, data)
}
