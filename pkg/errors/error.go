package errors

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// ErrMalformedRecord represents an input record that does not follow the wire format.
	ErrMalformedRecord ErrorCode = "malformed_record"
	// ErrOrderNotFound represents a cancel targeting an order id that is not resting in any book.
	ErrOrderNotFound ErrorCode = "order_not_found"
	// ErrCrossingRejected represents an order rejected because it would cross the opposite side.
	ErrCrossingRejected ErrorCode = "crossing_rejected"
	// ErrDuplicateOrderID represents a new order reusing an id that is still live.
	ErrDuplicateOrderID ErrorCode = "duplicate_order_id"
	// ErrOwnershipMismatch represents a cancel issued by a user that does not own the order.
	ErrOwnershipMismatch ErrorCode = "ownership_mismatch"
	// ErrInvariantViolation represents book state that the matching rules promise can never arise.
	ErrInvariantViolation ErrorCode = "invariant_violation"

	// RedisConfigError represents an error when the Redis configuration is invalid or nil.
	RedisConfigError ErrorCode = "redis_config_error"
	// RedisConnectionError represents an error when connecting to Redis.
	RedisConnectionError ErrorCode = "redis_connection_error"
	// RedisDisconnectionError represents an error when disconnecting from Redis.
	RedisDisconnectionError ErrorCode = "redis_disconnection_error"
	// RedisPingError represents an error when pinging Redis.
	RedisPingError ErrorCode = "redis_pinging_error"

	// RedisGetError represents an error when getting a value from Redis.
	RedisGetError ErrorCode = "redis_get_error"
	// RedisSetError represents an error when setting a value in Redis.
	RedisSetError ErrorCode = "redis_set_error"
	// RedisDelError represents an error when deleting a value from Redis.
	RedisDelError ErrorCode = "redis_del_error"
	// RedisSetNXError represents an error when setting a value in Redis with SetNX.
	RedisSetNXError ErrorCode = "redis_setnx_error"
)
