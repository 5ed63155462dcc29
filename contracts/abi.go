// Package contracts wraps the two fixed deployed ABIs — the invoicing
// contract and the cross-chain payment-automation contract — into typed
// method calls, translating positional return tuples into the named
// records of the types package. Method names and argument order must
// match the deployed bytecode exactly; no version negotiation exists.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const invoiceABIJSON = `
[
  {
    "name": "createInvoice",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "token", "type": "address" },
      { "name": "amount", "type": "uint256" },
      { "name": "dueBy", "type": "uint256" },
      { "name": "memo", "type": "string" },
      { "name": "logoURI", "type": "string" },
      { "name": "description", "type": "string" }
    ],
    "outputs": [{ "name": "hash", "type": "bytes32" }]
  },
  {
    "name": "payInvoice",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [{ "name": "hash", "type": "bytes32" }],
    "outputs": []
  },
  {
    "name": "getInvoice",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "hash", "type": "bytes32" }],
    "outputs": [
      { "name": "merchant", "type": "address" },
      { "name": "token", "type": "address" },
      { "name": "amount", "type": "uint256" },
      { "name": "dueBy", "type": "uint256" },
      { "name": "isPaid", "type": "bool" },
      { "name": "memo", "type": "string" },
      { "name": "logoURI", "type": "string" },
      { "name": "description", "type": "string" },
      { "name": "paidAt", "type": "uint256" }
    ]
  },
  {
    "name": "owner",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "address" }]
  }
]
`

const automationABIJSON = `
[
  {
    "name": "schedulePayment",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [
      { "name": "recipients", "type": "address[]" },
      { "name": "amountPerRecipient", "type": "uint256" },
      { "name": "scheduledTime", "type": "uint256" }
    ],
    "outputs": [{ "name": "id", "type": "uint256" }]
  },
  {
    "name": "executePayment",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [{ "name": "id", "type": "uint256" }],
    "outputs": []
  },
  {
    "name": "getPaymentDetails",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "id", "type": "uint256" }],
    "outputs": [
      { "name": "id", "type": "uint256" },
      { "name": "creator", "type": "address" },
      { "name": "totalAmount", "type": "uint256" },
      { "name": "recipients", "type": "address[]" },
      { "name": "amountPerRecipient", "type": "uint256" },
      { "name": "scheduledTime", "type": "uint256" },
      { "name": "executed", "type": "bool" }
    ]
  },
  {
    "name": "paymentCount",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "name": "owner",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "address" }]
  },
  {
    "name": "authorizedControllers",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "", "type": "address" }],
    "outputs": [{ "name": "", "type": "bool" }]
  }
]
`

const erc20ABIJSON = `
[
  {
    "name": "balanceOf",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "owner", "type": "address" }],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "name": "allowance",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      { "name": "owner", "type": "address" },
      { "name": "spender", "type": "address" }
    ],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "name": "approve",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "spender", "type": "address" },
      { "name": "value", "type": "uint256" }
    ],
    "outputs": [{ "name": "", "type": "bool" }]
  },
  {
    "name": "decimals",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "uint8" }]
  }
]
`

var (
	invoiceABI    = mustABI(invoiceABIJSON)
	automationABI = mustABI(automationABIJSON)
	erc20ABI      = mustABI(erc20ABIJSON)
)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// InvoiceABI exposes the invoicing ABI for callers that need to pack
// calls themselves (tests, call-data inspection).
func InvoiceABI() abi.ABI { return invoiceABI }

// AutomationABI exposes the payment-automation ABI.
func AutomationABI() abi.ABI { return automationABI }

// ERC20ABI exposes the token ABI.
func ERC20ABI() abi.ABI { return erc20ABI }
