// Package notification defines the delivery records of the notification
// platform (sent notifications, teams and cached users) and the repositories
// bound to their tables.
package notification
