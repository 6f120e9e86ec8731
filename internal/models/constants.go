package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusDeclined  = "declined"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	StepService   = "service_selection"
	StepDate      = "date_selection"
	StepTime      = "time_selection"
	StepContact   = "contact_details"
	StepVerify    = "verification"
	StepDone      = "committed"
	StepAbandoned = "abandoned"
)

const (
	ChannelSMS   = "sms"
	ChannelVoice = "voice"
)

const (
	// DefaultSlotStepMinutes шаг генерации слотов
	DefaultSlotStepMinutes = 15

	// DefaultCodeTTL время жизни кода подтверждения в секундах
	DefaultCodeTTL = 5 * 60

	// DefaultResendCooldown пауза между повторными отправками кода в секундах
	DefaultResendCooldown = 60

	// DefaultMaxAdvanceDays максимальный горизонт бронирования
	DefaultMaxAdvanceDays = 90

	// DefaultDraftTTL время жизни черновика заявки в Redis (24 часа в секундах)
	DefaultDraftTTL = 24 * 60 * 60

	// CodeLength длина числового кода подтверждения
	CodeLength = 6

	// NotifyQueueKey ключ очереди уведомлений в Redis
	NotifyQueueKey = "notify:queue"

	// NotifyDeadLetterKey ключ недоставленных уведомлений
	NotifyDeadLetterKey = "notify:deadletter"
)

// MinutesPerDay bounds all wall-clock arithmetic.
const MinutesPerDay = 24 * 60

// DateLayout is the canonical calendar-date format used across storage and the API.
const DateLayout = "2006-01-02"
