// File: utils/constants.go
package utils

import "time"

// RecordCachePrefix is the prefix used for Redis keys mapping a booking ID to its durable record ID.
const RecordCachePrefix = "bookingRecord:"

// PushTokenPrefix is the prefix used for Redis keys holding a party's push token.
const PushTokenPrefix = "pushToken:"

// PushTokenTTL is how long a push token supplied at registration is kept.
const PushTokenTTL = 30 * 24 * time.Hour
