package project

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Template renders a starter grfbuild.toml for a project called name. Every
// section is spelled out with its default so the file documents itself.
func Template(name string) string {
	def := DefaultConfig()
	var b strings.Builder
	fmt.Fprintf(&b, "# grfbuild project manifest\n")
	fmt.Fprintf(&b, "[package]\nname = %q\n\n", name)

	fmt.Fprintf(&b, "[paths]\n")
	fmt.Fprintf(&b, "src = %q\nlang = %q\ngfx = %q\nbuild = %q\n\n",
		def.Paths.Src, def.Paths.Lang, def.Paths.Gfx, def.Paths.Build)

	fmt.Fprintf(&b, "[fragments]\nextension = %q\n\n", def.Fragments.Extension)

	for _, r := range def.Required {
		fmt.Fprintf(&b, "[[required]]\nfile = %q\nmessage = %q\nfatal = %t\n\n", r.File, r.Message, r.Fatal)
	}

	fmt.Fprintf(&b, "# Followers are emitted right after their trigger, in order.\n")
	fmt.Fprintf(&b, "[chains]\n")
	chains := StarterChains()
	triggers := make([]string, 0, len(chains))
	for t := range chains {
		triggers = append(triggers, t)
	}
	sort.Strings(triggers)
	for _, t := range triggers {
		quoted := make([]string, len(chains[t]))
		for i, f := range chains[t] {
			quoted[i] = strconv.Quote(f)
		}
		fmt.Fprintf(&b, "%q = [%s]\n", t, strings.Join(quoted, ", "))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "[companions]\ntoken = %q\ncontext = %q\n\n", def.Companions.Token, def.Companions.Context)
	fmt.Fprintf(&b, "[tiers]\npriority = %q\nappend = %q\n\n", def.Tiers.Priority, def.Tiers.Append)

	rc := def.Reconcile
	fmt.Fprintf(&b, "[reconcile]\ncsv = %q\nid_column = %q\nbackup_dir = %q\ncap = %g\n",
		rc.CSV, rc.IDColumn, rc.BackupDir, rc.Cap)
	for _, f := range rc.Fields {
		fmt.Fprintf(&b, "\n[[reconcile.fields]]\ncolumn = %q\nproperty = %q\naggregate = %q\n", f.Column, f.Property, f.Aggregate)
	}
	return b.String()
}

// StarterChains is the chain table of the train set grfbuild was first
// written for. New projects start from it; an unused trigger is harmless
// since a chain only applies when its trigger file exists.
func StarterChains() map[string][]string {
	return map[string][]string{
		"BR_Mk3_TS.pnml":          {"BR_Mk3_TSD.pnml", "BR43.pnml", "BR253.pnml", "BR254.pnml", "BR256.pnml", "BR257.pnml"},
		"BR_Mk4_Header.pnml":      {"BR_Mk4_DVT.pnml", "BR_Mk4_TF.pnml", "BR_Mk4_TFE.pnml", "BR_Mk4_TRFB.pnml", "BR_Mk4_TRSB.pnml", "BR_Mk4_TS.pnml", "BR_Mk4_TSD.pnml", "BR_Mk4_TSE.pnml", "BR91.pnml", "BR91_IC225.pnml"},
		"Containers_BR.pnml":      {"BR_Conflat_A.pnml", "BR_Conflat_P.pnml"},
		"RCH_1907_graphics.pnml":  {"1_Plank_Open_Wagons_Load.pnml", "3_Plank_Open_Wagons_Load.pnml", "5_Plank_Open_Wagons_Load.pnml", "7_Plank_Open_Wagons_Load.pnml", "RCH_1907.pnml", "RCH_1907_1_plank.pnml", "RCH_1907_3_plank.pnml", "RCH_1907_5_plank.pnml", "RCH_1907_7_plank.pnml", "RCH_1907_Van.pnml"},
		"60Long_Cont20_Side.pnml": {"60Long_Cont30_Side.pnml", "60Long_Cont40_Side.pnml", "BR_FFA.pnml", "BR_FEA.pnml"},
		"LMS_4F.pnml":             {"MR_Tenders.pnml", "MR_3835.pnml", "LMS_Fowler_2P.pnml", "LMS_Fowler_4P.pnml"},
		"Evol_Header.pnml":        {"Evol_B.pnml", "Evol_F.pnml", "Evol_T.pnml"},
	}
}
