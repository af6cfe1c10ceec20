// Package codec maps symbols.Info values to and from the bitstream wire format.
//
// Every Info is one top-level block whose ID names its kind. Inside it, identity,
// location and doc sub-blocks carry the shared fields and kind-specific sub-blocks
// carry bases, parameters, enumerators and template heads.
package codec

import (
	bs "github.com/sha1n/relic-corpus/internal/bitstream"
	"github.com/sha1n/relic-corpus/internal/symbols"
)

// Signature opens every encoded blob.
var Signature = [4]byte{'R', 'C', 'B', 'S'}

// Version is the only format version this package reads and writes.
const Version uint32 = 2

// Block IDs.
const (
	blockIdentity uint8 = bs.FirstApplicationBlockID + iota
	blockLocation
	blockDoc
	blockDocNode
	blockNamespace
	blockRecord
	blockFunction
	blockEnum
	blockTypedef
	blockVariable
	blockField
	blockSpecialization
	blockType
	blockBase
	blockParam
	blockEnumValue
	blockTemplate
	blockTParam
	blockTArg
)

// Record IDs are scoped to their block, so most blocks start again at FirstRecordID.
const (
	// identity
	recID uint8 = bs.FirstRecordID + iota
	recName
	recAccess
	recParent
)

const (
	// location
	recDefLoc uint8 = bs.FirstRecordID + iota
	recDeclLoc
)

const (
	// doc node
	recNodeHeader uint8 = bs.FirstRecordID + iota
	recNodeName
	recText
	recStyled
	recLink
)

const (
	// shared by container blocks
	recMember uint8 = bs.FirstRecordID + iota

	// kind-specific records start after recMember
	recBits
	recFriend
	recDefault
	recPrimary
	recSpecMember
)

const (
	// type
	recTypeID uint8 = bs.FirstRecordID + iota
	recTypeName
)

const (
	// param, enum value, tparam, targ and base share these
	recItemBits uint8 = bs.FirstRecordID + iota
	recItemName
	recItemValue
	recItemExpr
	recItemType
)

var (
	opID   = bs.Array(8)
	opEnum = bs.Fixed(8)
	opBool = bs.Fixed(1)
	opMask = bs.Fixed(32)
	opLine = bs.VBR(8)
)

// blockKinds maps each top-level block ID to the Info kind it carries.
var blockKinds = map[uint8]symbols.Kind{
	blockNamespace:      symbols.KindNamespace,
	blockRecord:         symbols.KindRecord,
	blockFunction:       symbols.KindFunction,
	blockEnum:           symbols.KindEnum,
	blockTypedef:        symbols.KindTypedef,
	blockVariable:       symbols.KindVariable,
	blockField:          symbols.KindField,
	blockSpecialization: symbols.KindSpecialization,
}

func newSchema() *bs.Schema {
	s := bs.NewSchema()

	s.Define(blockIdentity, recID, opID).
		Define(blockIdentity, recName, bs.Blob()).
		Define(blockIdentity, recAccess, opEnum).
		Define(blockIdentity, recParent, opEnum, bs.Blob()) // kind, id||name

	s.Define(blockLocation, recDefLoc, opLine, opBool, bs.Blob()).
		Define(blockLocation, recDeclLoc, opLine, opBool, bs.Blob())

	s.Block(blockDoc)
	s.Define(blockDocNode, recNodeHeader, opEnum, opEnum, opEnum, opEnum). // kind, admonish, direction, level
		Define(blockDocNode, recNodeName, bs.Blob()).
		Define(blockDocNode, recText, opEnum, bs.Blob()).            // style, text
		Define(blockDocNode, recStyled, opEnum, bs.Blob()).          // style, text
		Define(blockDocNode, recLink, bs.VBR(6), opEnum, bs.Blob()) // href length, style, href||text

	member := []bs.Op{bs.Fixed(4), opEnum, opID} // category, access, id
	s.Define(blockNamespace, recMember, member...).
		Define(blockNamespace, recBits, opMask)
	s.Define(blockRecord, recMember, member...).
		Define(blockRecord, recBits, opEnum, opBool, opMask). // key kind, is typedef, flags
		Define(blockRecord, recFriend, opID)
	s.Define(blockFunction, recBits, opEnum, opMask) // class, flags
	s.Define(blockEnum, recBits, opBool)             // scoped
	s.Define(blockTypedef, recBits, opBool)          // is using
	s.Define(blockVariable, recBits, opMask)
	s.Define(blockField, recBits, opMask).
		Define(blockField, recDefault, bs.Blob())
	s.Define(blockSpecialization, recPrimary, opID).
		Define(blockSpecialization, recSpecMember, opID) // primary||specialized

	s.Define(blockType, recTypeID, opID).
		Define(blockType, recTypeName, bs.Blob())

	s.Define(blockBase, recItemBits, opEnum, opBool) // access, virtual
	s.Define(blockParam, recItemName, bs.Blob()).
		Define(blockParam, recItemValue, bs.Blob()) // default argument
	s.Define(blockEnumValue, recItemName, bs.Blob()).
		Define(blockEnumValue, recItemValue, bs.Blob()).
		Define(blockEnumValue, recItemExpr, bs.Blob())
	s.Define(blockTemplate, recItemValue, opID) // primary template
	s.Define(blockTParam, recItemBits, opEnum, opBool). // kind, pack
		Define(blockTParam, recItemName, bs.Blob()).
		Define(blockTParam, recItemType, bs.Blob()).
		Define(blockTParam, recItemValue, bs.Blob()) // default
	s.Define(blockTArg, recItemValue, bs.Blob())

	return s
}

var schema = newSchema()
