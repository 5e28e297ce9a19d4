package sms

import (
	"fmt"

	"github.com/verimobi/phone-verify/pkg/logger"
)

// DevSender logs verification codes instead of sending them. This is the
// only sender shipped with the service; real SMS delivery is out of scope.
type DevSender struct{}

func NewDevSender() *DevSender {
	return &DevSender{}
}

func (d *DevSender) SendVerificationCode(phone, code string) error {
	logger.Info("📱 [DEV SMS] Verification Code",
		"to", phone,
		"code", code,
	)

	fmt.Printf("\n" +
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n" +
		"📱 VERIFICATION SMS (DEV MODE)\n" +
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n" +
		"To: %s\n" +
		"\n" +
		"Your verification code is: %s\n" +
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		phone, code)

	return nil
}
