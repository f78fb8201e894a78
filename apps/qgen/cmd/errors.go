package cmd

import (
	"fmt"
	"os"

	sdkerrors "github.com/quatton/qgen/pkg/qsdk/qerr"
)

// exitIfSdkError prints a user-facing message for err and exits. Credential
// fragments are stripped by FormatMessage.
func exitIfSdkError(err error) {
	if err == nil {
		return
	}
	msg := sdkerrors.FormatMessage(err)
	switch {
	case sdkerrors.IsCode(err, sdkerrors.CodeUnauthorized):
		fmt.Fprintf(os.Stderr, "❌ %s\n   run 'qgen token set <token>' to update it\n", msg)
	case sdkerrors.IsCode(err, sdkerrors.CodeConfig):
		fmt.Fprintf(os.Stderr, "❌ %s\n", sdkerrors.Redact(err.Error()))
	default:
		fmt.Fprintf(os.Stderr, "❌ %s\n", msg)
	}
	os.Exit(1)
}
