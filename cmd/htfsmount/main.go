// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command htfsmount mounts an HTFS database at a directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacobsa/fuse"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arsmoriendy/htfs"
	"github.com/arsmoriendy/htfs/internal/store"
)

var (
	flagNew    bool
	flagPrefix string
)

func main() {
	root := &cobra.Command{
		Use:   "htfsmount <database> <mountpoint>",
		Short: "Mount a tag-aware filesystem backed by a SQL database",
		Args:  cobra.ExactArgs(2),
		RunE:  run,
	}
	root.Flags().BoolVarP(&flagNew, "new", "n", false, "create the database file and mountpoint directory if absent")
	root.Flags().StringVarP(&flagPrefix, "prefix", "p", "#", "tag prefix")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	dbPath, mountPoint := args[0], args[1]

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if flagNew {
		if err := os.MkdirAll(mountPoint, 0o755); err != nil {
			return fmt.Errorf("creating mountpoint: %w", err)
		}
	}

	pool, err := store.Open(dbPath, flagNew, log)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	fsImpl := htfs.NewFileSystem(pool, flagPrefix, log)

	ctx := context.Background()
	if _, err := fsImpl.Init(ctx, &htfs.InitRequest{Header: htfs.RequestHeader{Uid: uint32(os.Getuid()), Gid: uint32(os.Getgid())}}); err != nil {
		pool.Close()
		return fmt.Errorf("initializing filesystem: %w", err)
	}

	server := newServer(fsImpl, flagPrefix, log)

	mfs, err := fuse.Mount(mountPoint, server, &fuse.MountConfig{
		FSName:      "htfs",
		ErrorLogger: stdLogger(log),
	})
	if err != nil {
		pool.Close()
		return fmt.Errorf("mounting: %w", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Info("received shutdown signal, unmounting")
		fuse.Unmount(mountPoint)
	}()

	if err := mfs.Join(ctx); err != nil {
		return fmt.Errorf("serving: %w", err)
	}

	_, err = fsImpl.Destroy(ctx, &htfs.DestroyRequest{})
	return err
}
