// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/digipin-go/digipin/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
