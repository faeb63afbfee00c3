package mqtt

import "errors"

// Sentinel errors for broker operations. Call sites wrap these with detail
// (topic, timeout, broker address); callers match with errors.Is.
var (
	ErrConnectionFailed  = errors.New("mqtt: broker connection failed")
	ErrNotConnected      = errors.New("mqtt: no active broker session")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")
	ErrInvalidTopic      = errors.New("mqtt: topic must not be empty")
	ErrInvalidQoS        = errors.New("mqtt: qos must be 0, 1 or 2")
)
