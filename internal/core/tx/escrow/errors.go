package escrow

import "github.com/LeJamon/goEscrow/internal/core/tx"

// Escrow program results. Each violated constraint has its own code.
const (
	ResultNotMaker                     = tx.CustomResultBase + iota // 6000
	ResultMakerMismatch                                             // 6001
	ResultTakerMintMismatch                                         // 6002
	ResultReceiverMismatch                                          // 6003
	ResultSourceMintMismatch                                        // 6004
	ResultSourceOwnerMismatch                                       // 6005
	ResultReturnAccountMismatch                                     // 6006
	ResultDestinationMintMismatch                                   // 6007
	ResultVaultBalanceMismatch                                      // 6008
	ResultRecordAddressMismatch                                     // 6009
	ResultVaultAddressMismatch                                      // 6010
	ResultBumpMismatch                                              // 6011
	ResultAccountDiscriminatorMismatch                              // 6012
	ResultInvalidMint                                               // 6013
)

func init() {
	for _, r := range []struct {
		result  tx.Result
		name    string
		message string
	}{
		{ResultNotMaker, "NotMaker", "Only the maker may cancel this offer."},
		{ResultMakerMismatch, "MakerMismatch", "Supplied maker does not match the escrow record."},
		{ResultTakerMintMismatch, "TakerMintMismatch", "Taker is paying with a mint other than the one requested."},
		{ResultReceiverMismatch, "ReceiverMismatch", "Maker receiving account does not match the escrow record."},
		{ResultSourceMintMismatch, "SourceMintMismatch", "Maker source account does not hold mint A."},
		{ResultSourceOwnerMismatch, "SourceOwnerMismatch", "Maker source account is not owned by the maker."},
		{ResultReturnAccountMismatch, "ReturnAccountMismatch", "Maker receiving account must hold mint B and be owned by the maker."},
		{ResultDestinationMintMismatch, "DestinationMintMismatch", "Destination account does not hold mint A."},
		{ResultVaultBalanceMismatch, "VaultBalanceMismatch", "Vault balance does not equal the escrowed amount."},
		{ResultRecordAddressMismatch, "RecordAddressMismatch", "Escrow record address does not match its derivation."},
		{ResultVaultAddressMismatch, "VaultAddressMismatch", "Vault address does not match its derivation."},
		{ResultBumpMismatch, "BumpMismatch", "Supplied bump is not the canonical bump."},
		{ResultAccountDiscriminatorMismatch, "AccountDiscriminatorMismatch", "Account is not an escrow record."},
		{ResultInvalidMint, "InvalidMint", "Account is not an initialized mint."},
	} {
		tx.RegisterResult(r.result, r.name, r.message)
	}
}
