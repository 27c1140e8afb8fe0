package redisstore

import "fmt"

// Key layout of the tracking document store.
//
//	vehicle:{id}          hash    catalog entry
//	vehicle:{id}:snapshot hash    last known position, event-time ordered
//	vehicle:{id}:history  stream  append-only samples, TTL-expired
//	stops:geo             geo     stop locations
//	stop:{id}             string  stop document (JSON)
func vehicleKey(id string) string  { return "vehicle:" + id }
func snapshotKey(id string) string { return fmt.Sprintf("vehicle:%s:snapshot", id) }
func historyKey(id string) string  { return fmt.Sprintf("vehicle:%s:history", id) }
func stopKey(id string) string     { return "stop:" + id }

const stopsGeoKey = "stops:geo"
