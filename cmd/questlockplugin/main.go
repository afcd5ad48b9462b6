//go:build windows && cgo

// questlockplugin is the in-game half of questlock, built with
//
//	go build -buildmode=c-shared -o questlock.dll ./cmd/questlockplugin
//
// The loader calls QuestLockInstall once, before the game starts running
// scripts, with a table of functions for reading game data and optionally a
// block of memory within branch range of the executable for trampolines.
package main

/*
#include "host.h"

extern void DropItemHook(uint32_t handleID, uint32_t stackID);
extern void TransferItemHook(void* item, void* stacks);
*/
import "C"

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"unsafe"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	"github.com/pboyd/questlock"
)

const pluginDir = "Data/F4SE/Plugins"

type plugin struct {
	host    *host
	handler *questlock.Handler
}

// active is set before any hook is installed and never cleared.
var active atomic.Pointer[plugin]

//export DropItemHook
func DropItemHook(handleID, stackID C.uint32_t) {
	p := active.Load()
	if p == nil {
		return
	}
	p.handler.DropItem(uint32(handleID), uint32(stackID))
}

//export TransferItemHook
func TransferItemHook(item, stacks unsafe.Pointer) {
	p := active.Load()
	if p == nil {
		return
	}
	stackIDs, _ := p.host.firstStackID(stacks)
	p.handler.TransferItem(p.host.itemAt(item), stackIDs)
}

// QuestLockInstall patches the game. A false return means the plugin failed
// to load and the game code may be partially patched; the loader should
// abort.
//
//export QuestLockInstall
func QuestLockInstall(fns *C.questlock_host, arena unsafe.Pointer, arenaSize C.size_t) C.bool {
	if err := install(fns, arena, int(arenaSize)); err != nil {
		log.WithError(err).Error("unable to install hooks")
		return false
	}
	return true
}

func install(fns *C.questlock_host, arenaMem unsafe.Pointer, arenaSize int) error {
	if fns == nil {
		return errors.New("no host functions")
	}

	cfg, err := questlock.LoadConfig(filepath.Join(pluginDir, "questlock.yaml"))
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	h := &host{fns: fns}
	if cfg.Settings != "" {
		fallback, err := questlock.LoadSettings(cfg.Settings)
		if err != nil {
			return err
		}
		h.fallback = fallback
	}

	lib, err := questlock.LoadAddressLibrary(cfg.AddressLibrary)
	if err != nil {
		return fmt.Errorf("loading address library: %w", err)
	}

	module, err := questlock.CurrentModule()
	if err != nil {
		return fmt.Errorf("reading module: %w", err)
	}
	log.WithFields(log.Fields{
		"version": questlock.RuntimeVersion.String(),
		"base":    fmt.Sprintf("%#x", module.Base),
		"ids":     lib.Len(),
	}).Info("loaded address library")

	mem := questlock.ProcessMemory{}
	var arena *questlock.Arena
	if arenaMem != nil && arenaSize > 0 {
		arena = questlock.NewArenaAt(unsafe.Slice((*byte)(arenaMem), arenaSize), mem)
	} else {
		arena = questlock.NewArena(cfg.ArenaSize, module.Base, mem)
	}

	active.Store(&plugin{
		host: h,
		handler: &questlock.Handler{
			Inventory: h,
			Settings:  h,
			HUD:       h,
		},
	})

	installer := questlock.NewInstaller(questlock.NewResolver(module, lib), arena)
	return installer.InstallAll([]questlock.Binding{
		{Site: questlock.DropSite, Callback: uintptr(unsafe.Pointer(C.DropItemHook))},
		{Site: questlock.TransferSite, Callback: uintptr(unsafe.Pointer(C.TransferItemHook))},
	})
}

func setupLogging(cfg questlock.Config) error {
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(pluginDir, "questlock.log"))
	if err != nil {
		return err
	}

	log.SetHandler(text.New(f))
	log.SetLevel(level)
	return nil
}

func main() {}
