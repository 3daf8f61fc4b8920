package model

import "fmt"

// RequesterKeyForUser builds the analysis-ownership key for a registered user.
func RequesterKeyForUser(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// RequesterKeyForIP builds the analysis-ownership key for an anonymous client.
func RequesterKeyForIP(addr string) string {
	return "ip:" + addr
}
