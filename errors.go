package voxelvk

import (
	"log"
	"os"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

var (
	//ErrPoolExhausted is returned by Acquire when no command buffer is free in any pool.
	//It is the one recoverable error of the core: wait, drop the frame or allow more pools.
	ErrPoolExhausted = errors.New("voxelvk: command pool exhausted")

	//ErrNoQueueFamily means no queue family satisfies the requested flags
	ErrNoQueueFamily = errors.New("voxelvk: no suitable queue family")

	//ErrNoAdapter means no physical device passed the suitability checks
	ErrNoAdapter = errors.New("voxelvk: no suitable GPU adapter")

	//ErrRecorderConsumed is returned when a recorder is submitted twice
	ErrRecorderConsumed = errors.New("voxelvk: recorder already submitted or discarded")

	//ErrTimeout is returned when a fence wait expires
	ErrTimeout = errors.New("voxelvk: timed out waiting for GPU")

	//ErrOutOfDate means the swapchain must be recreated before the next frame
	ErrOutOfDate = errors.New("voxelvk: swapchain out of date")

	//ErrOutOfMemory is returned by the sub-allocator when no block can hold a request
	ErrOutOfMemory = errors.New("voxelvk: out of device memory")
)

func isError(ret vk.Result) bool {
	return ret != vk.Success
}

//NewError converts a vulkan result into an error carrying the caller stack, nil on success
func NewError(ret vk.Result) error {
	if ret != vk.Success {
		return errors.Errorf("vulkan error: %s (%d)", vk.Error(ret).Error(), ret)
	}
	return nil
}

//Fatal runs the finalizers, appends the error to fatal_log.txt in dir and exits.
//Setup failures go through here, nothing in the core recovers from them.
func Fatal(dir string, err error, finalizers ...func()) {
	if err != nil {
		for _, fn := range finalizers {
			fn()
		}

		file, ferr := os.OpenFile(logPath(dir, "fatal_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if ferr != nil {
			log.Fatalf("%+v", err)
		}
		fatal_log := log.New(file, "FATAL: ", log.Ldate|log.Ltime|log.Lshortfile)
		fatal_log.Fatalf("%+v", err)
	}
}

func checkErr(err *error) {
	if v := recover(); v != nil {
		*err = errors.Errorf("%+v", v)
	}
}
