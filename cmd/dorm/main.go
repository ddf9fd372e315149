package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shashiranjanraj/dorm/internal/cli"
	"github.com/shashiranjanraj/dorm/pkg/bootstrap"
	"github.com/shashiranjanraj/dorm/pkg/orm"
)

func main() {
	err := cli.New(orm.Default, bootstrap.ForEngine(orm.Default), cli.WithDelegation(true)).
		Run(context.Background(), os.Args[1:])
	_ = orm.Default.Close()
	if err == nil {
		return
	}

	var exit *cli.ExitError
	if errors.As(err, &exit) {
		os.Exit(exit.Code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
