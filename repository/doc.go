// Package repository provides a generic document repository: typed CRUD over
// a store.Store, collection templates with placeholders, audit timestamps and
// offset pagination, each available as a blocking call, a future or a stream.
package repository
