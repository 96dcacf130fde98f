//go:build !linux

package main

func defaultBackendName() string { return "kqueue" }
