package service

import (
	"time"

	"github.com/utafrali/RegistryGo/internal/domain"
)

// Policy carries the registry's lifecycle and verification policy, loaded
// from configuration at startup.
type Policy struct {
	// ExpireWarningPeriod is how long an expired domain stays resolvable
	// before it is taken out of the zone.
	ExpireWarningPeriod time.Duration

	// RedemptionGracePeriod is how long an outzoned domain remains
	// recoverable before it becomes a delete candidate. Force delete uses
	// the same window to schedule destruction.
	RedemptionGracePeriod time.Duration

	// PendingConfirmationWindow is how long a registrant has to confirm a
	// pending update or delete before the scheduler expires it.
	PendingConfirmationWindow time.Duration

	// DaysToRenewBeforeExpire limits how early a renewal may be submitted.
	// Zero disables the window.
	DaysToRenewBeforeExpire int

	// TransferWaitHours is how long the losing registrar has to decide on a
	// transfer. Zero means requests auto-approve immediately.
	TransferWaitHours int

	// VerifyRegistrantChange requires registrant confirmation before a
	// registrant change takes effect.
	VerifyRegistrantChange bool

	// VerifyDelete requires registrant confirmation before deletion.
	VerifyDelete bool

	// Limits is the structural cardinality policy.
	Limits domain.ValidationLimits
}
