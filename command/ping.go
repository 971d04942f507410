package command

import (
	"context"
	"fmt"
	"time"
)

// Ping reports uptime.
func Ping(ctx context.Context, robo *Robot, call *Invocation) Result {
	now := time.Now()
	if call.Message.Timestamp != 0 {
		now = call.Message.Time()
	}
	return Result{Text: "Pong! Uptime: " + Uptime(now.Sub(robo.Start))}
}

// Uptime formats a duration as days, hours, minutes, and seconds.
// Each component excludes the larger units already counted.
func Uptime(d time.Duration) string {
	d = max(d, 0)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	return fmt.Sprintf("%dd, %dh, %dm, %ds", days, hours, minutes, seconds)
}
