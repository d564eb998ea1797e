// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/stitchboard/internal/validation"
)

// Validate checks the loaded configuration. Struct tags cover ranges and
// enumerations; the validateX helpers cover cross-field rules.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.validateNotify(); err != nil {
		return err
	}

	if err := c.validateNATS(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	return c.validateRedis()
}

func (c *Config) validateNotify() error {
	if !c.Notify.BusEnabled {
		return nil
	}
	prefix := c.Notify.SubjectPrefix + "."
	if !strings.HasPrefix(c.Notify.CommentSubject, prefix) {
		return fmt.Errorf("notify.comment_subject %q must be under subject_prefix %q so the consumer receives it",
			c.Notify.CommentSubject, c.Notify.SubjectPrefix)
	}
	// Overlapping prefixes would feed each consumer the other's messages.
	events := c.Notify.EventSubjectPrefix + "."
	if c.Notify.EventSubjectPrefix == c.Notify.SubjectPrefix ||
		strings.HasPrefix(events, prefix) || strings.HasPrefix(prefix, events) {
		return fmt.Errorf("notify.event_subject_prefix %q must not overlap subject_prefix %q",
			c.Notify.EventSubjectPrefix, c.Notify.SubjectPrefix)
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.Notify.BusEnabled {
		return nil
	}
	if c.NATS.StreamName == "" {
		return fmt.Errorf("nats.stream_name is required when the bus is enabled")
	}
	if !c.NATS.EmbeddedServer && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when the embedded server is disabled")
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("nats.store_dir is required for the embedded server")
	}
	// JetStream refuses a stream larger than the server's file store.
	if c.NATS.EmbeddedServer && c.NATS.MaxStore > 0 && c.NATS.StreamMaxBytes > c.NATS.MaxStore {
		return fmt.Errorf("nats.stream_max_bytes (%d) exceeds nats.max_store (%d)",
			c.NATS.StreamMaxBytes, c.NATS.MaxStore)
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn is required for the postgres driver")
		}
	case StoreDriverBadger:
		if !c.Store.BadgerInMemory && c.Store.BadgerPath == "" {
			return fmt.Errorf("store.badger_path is required unless badger_in_memory is set")
		}
	}
	return nil
}

func (c *Config) validateRedis() error {
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}
