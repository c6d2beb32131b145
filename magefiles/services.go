//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	grobidImage     = "lfoppiano/grobid:0.8.1"
	grobidContainer = "files-processor-grobid"
	popplerImage    = "poppler:latest"
	popplerContext  = "build/poppler"
)

// Services groups targets for the containers the processor talks to.
type Services mg.Namespace

// containerRuntime returns $CONTAINER_RUNTIME, or docker.
func containerRuntime() string {
	if rt := os.Getenv("CONTAINER_RUNTIME"); rt != "" {
		return rt
	}
	return "docker"
}

// Grobid starts a detached GROBID server on port 8070.
func (Services) Grobid() error {
	rt := containerRuntime()
	if err := sh.RunV(rt, "run", "-d", "--rm", "--name", grobidContainer, "-p", "8070:8070", grobidImage); err != nil {
		return fmt.Errorf("starting grobid: %w", err)
	}
	fmt.Println("GROBID listening on http://localhost:8070")
	return nil
}

// Stop removes the GROBID container.
func (Services) Stop() error {
	return sh.RunV(containerRuntime(), "stop", grobidContainer)
}

// Poppler builds the image used by the pdftotext text backend.
func (Services) Poppler() error {
	if err := sh.RunV(containerRuntime(), "build", "-t", popplerImage, popplerContext); err != nil {
		return fmt.Errorf("building %s: %w", popplerImage, err)
	}
	fmt.Printf("Built %s\n", popplerImage)
	return nil
}
