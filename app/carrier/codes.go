package carrier

// Response codes returned in the carrier envelope. The carrier is
// inconsistent about the success code type and sends both the string
// "000000" and the number 0; responseCode normalizes that during decoding.
const (
	CodeSuccess = "000000"

	CodeInsufficientBalance = "200010"
	CodeIPNotAllowed        = "200050"
	CodePackageNotEnabled   = "200061"
	CodeInvalidPackage      = "200062"
)

// rejectionHints maps known rejection codes to operator-facing diagnostics.
// These only shape the outcome message, never the outcome status.
var rejectionHints = map[string]string{
	CodeInsufficientBalance: "insufficient account balance at the carrier, top up the merchant wallet",
	CodeIPNotAllowed:        "caller IP is not on the carrier allow-list, register the egress IP in the portal",
	CodePackageNotEnabled:   "package is not enabled for purchase on this account, flag it in the carrier portal",
	CodeInvalidPackage:      "invalid package identifier, check the SKU mapping table",
}

// RejectionHint returns the operator diagnostic for a known rejection code.
func RejectionHint(code string) (string, bool) {
	hint, ok := rejectionHints[code]
	return hint, ok
}
