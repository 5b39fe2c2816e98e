package tx

import (
	"fmt"
	"sync"
)

// Result represents a transaction result code
type Result int

// Result codes are organized by family:
//   - tes: success
//   - tec: the request was well formed and authorized but a ledger
//     constraint, funding or existence check failed
//   - tef: authorization or host rule failure
//   - tem: malformed request, rejected before any state is read
//   - tel: local failure, the request never reached the ledger
//
// Programs register their own codes at CustomResultBase and above.
const (
	TesSUCCESS Result = 0

	// tec codes (100-199)
	TecNO_ENTRY              Result = 140 // account not found
	TecINSUFFICIENT_FUNDS    Result = 159
	TecINCORRECT_OWNER       Result = 174 // account not owned by the expected program
	TecACCOUNT_IN_USE        Result = 175
	TecINSUFFICIENT_LAMPORTS Result = 176
	TecMINT_MISMATCH         Result = 177
	TecNOT_RENT_EXEMPT       Result = 178
	TecNON_ZERO_BALANCE      Result = 179
	TecUNINITIALIZED         Result = 180
	TecALREADY_INITIALIZED   Result = 181
	TecOVERFLOW              Result = 182

	// tef codes (-199 to -100)
	TefBAD_AUTH                  Result = -196
	TefINTERNAL                  Result = -192
	TefALREADY_PROCESSED         Result = -190 // transaction id already committed
	TefBAD_SIGNATURE             Result = -186
	TefMISSING_SIGNER            Result = -178
	TefSEEDS_MISMATCH            Result = -177
	TefREADONLY_MODIFIED         Result = -176
	TefEXTERNAL_ACCOUNT_MODIFIED Result = -175
	TefPRIVILEGE_ESCALATION      Result = -174
	TefMISSING_ACCOUNT           Result = -173
	TefUNBALANCED                Result = -172
	TefCALL_DEPTH                Result = -171

	// tem codes (-299 to -200)
	TemMALFORMED           Result = -299
	TemBAD_AMOUNT          Result = -298
	TemINVALID_INSTRUCTION Result = -251
	TemNOT_ENOUGH_ACCOUNTS Result = -250
	TemUNKNOWN_PROGRAM     Result = -249
	TemINVALID_ACCOUNT     Result = -248

	// tel codes (-399 to -300)
	TelLOCAL_ERROR Result = -399
	TelCANCELLED   Result = -398
)

// CustomResultBase is the first code available to programs.
const CustomResultBase Result = 6000

var resultNames = map[Result]string{
	TesSUCCESS:                   "tesSUCCESS",
	TecNO_ENTRY:                  "tecNO_ENTRY",
	TecINSUFFICIENT_FUNDS:        "tecINSUFFICIENT_FUNDS",
	TecINCORRECT_OWNER:           "tecINCORRECT_OWNER",
	TecACCOUNT_IN_USE:            "tecACCOUNT_IN_USE",
	TecINSUFFICIENT_LAMPORTS:     "tecINSUFFICIENT_LAMPORTS",
	TecMINT_MISMATCH:             "tecMINT_MISMATCH",
	TecNOT_RENT_EXEMPT:           "tecNOT_RENT_EXEMPT",
	TecNON_ZERO_BALANCE:          "tecNON_ZERO_BALANCE",
	TecUNINITIALIZED:             "tecUNINITIALIZED",
	TecALREADY_INITIALIZED:       "tecALREADY_INITIALIZED",
	TecOVERFLOW:                  "tecOVERFLOW",
	TefBAD_AUTH:                  "tefBAD_AUTH",
	TefINTERNAL:                  "tefINTERNAL",
	TefALREADY_PROCESSED:         "tefALREADY_PROCESSED",
	TefBAD_SIGNATURE:             "tefBAD_SIGNATURE",
	TefMISSING_SIGNER:            "tefMISSING_SIGNER",
	TefSEEDS_MISMATCH:            "tefSEEDS_MISMATCH",
	TefREADONLY_MODIFIED:         "tefREADONLY_MODIFIED",
	TefEXTERNAL_ACCOUNT_MODIFIED: "tefEXTERNAL_ACCOUNT_MODIFIED",
	TefPRIVILEGE_ESCALATION:      "tefPRIVILEGE_ESCALATION",
	TefMISSING_ACCOUNT:           "tefMISSING_ACCOUNT",
	TefUNBALANCED:                "tefUNBALANCED",
	TefCALL_DEPTH:                "tefCALL_DEPTH",
	TemMALFORMED:                 "temMALFORMED",
	TemBAD_AMOUNT:                "temBAD_AMOUNT",
	TemINVALID_INSTRUCTION:       "temINVALID_INSTRUCTION",
	TemNOT_ENOUGH_ACCOUNTS:       "temNOT_ENOUGH_ACCOUNTS",
	TemUNKNOWN_PROGRAM:           "temUNKNOWN_PROGRAM",
	TemINVALID_ACCOUNT:           "temINVALID_ACCOUNT",
	TelLOCAL_ERROR:               "telLOCAL_ERROR",
	TelCANCELLED:                 "telCANCELLED",
}

var resultMessages = map[Result]string{
	TesSUCCESS:                   "The transaction was applied.",
	TecNO_ENTRY:                  "Account not found.",
	TecINSUFFICIENT_FUNDS:        "Insufficient token balance for transfer.",
	TecINCORRECT_OWNER:           "Account is not owned by the expected program.",
	TecACCOUNT_IN_USE:            "An account already exists at this address.",
	TecINSUFFICIENT_LAMPORTS:     "Insufficient lamports to fund the operation.",
	TecMINT_MISMATCH:             "Token accounts belong to different mints.",
	TecNOT_RENT_EXEMPT:           "Account balance is below the rent exempt minimum.",
	TecNON_ZERO_BALANCE:          "Token account still holds a balance.",
	TecUNINITIALIZED:             "Account is not initialized.",
	TecALREADY_INITIALIZED:       "Account is already initialized.",
	TecOVERFLOW:                  "Arithmetic overflow.",
	TefBAD_AUTH:                  "Authority does not match the account owner.",
	TefINTERNAL:                  "Internal ledger failure.",
	TefALREADY_PROCESSED:         "This transaction has already been applied.",
	TefBAD_SIGNATURE:             "Invalid signature.",
	TefMISSING_SIGNER:            "A required signature is missing.",
	TefSEEDS_MISMATCH:            "Supplied address does not match its derivation.",
	TefREADONLY_MODIFIED:         "Instruction modified a read-only account.",
	TefEXTERNAL_ACCOUNT_MODIFIED: "Instruction modified an account it does not own.",
	TefPRIVILEGE_ESCALATION:      "Cross-program invocation requested privileges the caller lacks.",
	TefMISSING_ACCOUNT:           "Instruction references an account the caller did not supply.",
	TefUNBALANCED:                "Instruction changed the total lamports of its accounts.",
	TefCALL_DEPTH:                "Cross-program invocation depth exceeded.",
	TemMALFORMED:                 "The instruction payload is malformed.",
	TemBAD_AMOUNT:                "Amounts must be positive.",
	TemINVALID_INSTRUCTION:       "Unknown instruction discriminator.",
	TemNOT_ENOUGH_ACCOUNTS:       "Instruction supplied too few accounts.",
	TemUNKNOWN_PROGRAM:           "No program is registered at this address.",
	TemINVALID_ACCOUNT:           "A well-known account was substituted.",
	TelLOCAL_ERROR:               "Local error.",
	TelCANCELLED:                 "Submission cancelled before execution.",
}

var customMu sync.RWMutex

// RegisterResult names a program-defined result code. Codes below
// CustomResultBase or already registered cause a panic, as registration
// happens from init functions.
func RegisterResult(r Result, name, message string) {
	if r < CustomResultBase {
		panic(fmt.Sprintf("result %d is reserved for the host", r))
	}
	customMu.Lock()
	defer customMu.Unlock()
	if _, exists := resultNames[r]; exists {
		panic(fmt.Sprintf("result %d already registered", r))
	}
	resultNames[r] = name
	resultMessages[r] = message
}

// String returns the string representation of the result code
func (r Result) String() string {
	customMu.RLock()
	defer customMu.RUnlock()
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(r))
}

// Message returns a human-readable message for the result
func (r Result) Message() string {
	customMu.RLock()
	defer customMu.RUnlock()
	if msg, ok := resultMessages[r]; ok {
		return msg
	}
	return fmt.Sprintf("Unknown(%d)", int(r))
}

// IsSuccess returns true if the result indicates success
func (r Result) IsSuccess() bool {
	return r == TesSUCCESS
}

// IsTec returns true if this is a tec code
func (r Result) IsTec() bool {
	return r >= 100 && r < 200
}

// IsTef returns true if this is a tef (failure) code
func (r Result) IsTef() bool {
	return r >= -199 && r <= -100
}

// IsTem returns true if this is a tem (malformed) code
func (r Result) IsTem() bool {
	return r >= -299 && r <= -200
}

// IsTel returns true if this is a tel (local error) code
func (r Result) IsTel() bool {
	return r >= -399 && r <= -300
}

// IsCustom returns true if a program defined this code
func (r Result) IsCustom() bool {
	return r >= CustomResultBase
}
