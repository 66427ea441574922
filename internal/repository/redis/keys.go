package redis

import "fmt"

const ns = "seatbook:v1"

func KeyUserProfile(userID int64) string {
	return fmt.Sprintf("%s:user:%d:profile", ns, userID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemBooking(userID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%d:%s", ns, userID, idemKey)
}
