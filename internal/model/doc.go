// Package model holds the measurement model shared by tally, reconciliation and reporting: instances and their buckets, offerings, subscriptions and their capacity measurements, and tally snapshots. Types here carry accessors and aggregation helpers only; persistence lives in dbx.
package model
