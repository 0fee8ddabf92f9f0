package evm

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	//go:embed coordinator.abi.json
	coordinatorJSON string
	//go:embed erc20.abi.json
	erc20JSON string
)

var (
	abiOnce        sync.Once
	coordinatorABI abi.ABI
	erc20ABI       abi.ABI
	abiErr         error
)

// contractABIs parses the embedded ABIs once.
func contractABIs() (coordinator, token abi.ABI, err error) {
	abiOnce.Do(func() {
		coordinatorABI, abiErr = abi.JSON(strings.NewReader(coordinatorJSON))
		if abiErr != nil {
			abiErr = fmt.Errorf("parse coordinator abi: %w", abiErr)
			return
		}
		erc20ABI, abiErr = abi.JSON(strings.NewReader(erc20JSON))
		if abiErr != nil {
			abiErr = fmt.Errorf("parse erc20 abi: %w", abiErr)
		}
	})
	return coordinatorABI, erc20ABI, abiErr
}
