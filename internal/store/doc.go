// Package store holds the jobs served by the simulated job server.
//
// The main components are:
//
//   - [Store]: Interface defining job creation, lookup and resolution
//   - [MemoryStore]: In-memory implementation of Store
//   - [Job]: Storage representation of one asynchronous job
//
// A job reports "pending" until its warm-up delay has passed. The first
// read after that picks a terminal outcome, and every later read returns
// the same outcome. The choice happens under the store's write lock, so
// concurrent readers never see two different outcomes for one job.
//
// Users of the jobwait library should not need to interact with this
// package directly.
package store
